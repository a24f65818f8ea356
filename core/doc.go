// Package core contains the shared SDK contracts: configuration and its
// layered resolution, the APIError envelope, logger and metrics contracts.
// Transport and webhook packages depend on core; core depends on neither.
package core
