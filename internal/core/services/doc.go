// Package services is the validation core. ValidationService runs a
// session requirement by requirement: it resolves the prompt template,
// loads or extracts document content, calls the model through a
// ModelClient, parses the verdict and records it. The remaining services
// back the query and settings ports used by the CLI, API and MCP server.
package services
