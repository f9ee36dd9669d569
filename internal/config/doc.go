// Package config defines the format-agnostic entity model and the Loader
// interface that turns entity files into it.
//
// The config.Model is the single input of the builder package. Concrete
// loaders, such as for HCL and YAML, live in separate adapter packages and
// are combined per file extension by a Registry.
package config
