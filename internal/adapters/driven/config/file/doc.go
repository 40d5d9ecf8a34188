// Package file keeps engine settings and prompt template overrides on disk
// under the config directory (~/.compliance by default).
package file
