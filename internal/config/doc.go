// Package config holds the configuration of a boardaid session: the boards
// to crawl, request and download limits, directories and the optional S3
// store. Values come from defaults, the .boardaid.yaml file, environment
// variables and CLI flags.
package config
