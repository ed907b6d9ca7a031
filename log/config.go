package log

// Config for log
type Config struct {
	// Environment defining the log format ("production" or "development").
	// In development mode enables verbose logging, uses a console encoder,
	// prints stack traces for warnings and errors.
	Environment LogEnvironment `mapstructure:"Environment" jsonschema:"enum=production,enum=development"`
	// Level of log. As lower value more logs are going to be generated
	Level string `mapstructure:"Level" jsonschema:"enum=error,enum=warn,enum=info,enum=debug"`
	// Outputs
	Outputs []string `mapstructure:"Outputs"`
}
