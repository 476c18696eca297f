// Package webhook receives GitHub webhook deliveries and logs them.
//
// Every delivery is logged twice: once verbatim as indented JSON,
// and once as a one-line summary for the event types listed in kinds.
// Signatures are not verified and processing is stateless,
// so replaying a delivery produces the same log lines again.
package webhook
