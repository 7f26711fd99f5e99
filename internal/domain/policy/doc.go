// Package policy decides which idle timeout and which exemptions apply to a
// tab's location, and owns the persisted settings and exemption list.
//
// Resolution order for a location:
//  1. No hostname can be derived: OutcomeUnresolvable (never suspend).
//  2. Hostname equals or is a subdomain of an exemption: OutcomeExempt.
//  3. First domain rule matching the hostname supplies the timeout.
//  4. Otherwise the global timeout applies.
//
// The resolver functions are pure. Service reads the store on every Load so
// edits take effect on the next scan without a restart. An optional YAML file
// can seed the store at startup and be watched for changes.
package policy
