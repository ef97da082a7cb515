// Package config defines configuration structures for the multifetch CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (MULTIFETCH_ prefix), optionally read from a .env file
//   - YAML configuration file
//
// Flags win over the environment, which wins over the file.
//
// # Example
//
//	concurrency: 8
//	timeout: 30s
//	read_buffer_size: 64KiB
//	output:
//	  bucket: s3://downloads?region=us-east-1
//	  prefix: nightly/
//	metrics_addr: :9090
//	log:
//	  level: debug
//	  format: json
package config
