// vl2rule/cmd/vl2rule/main.go

package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"rgehrsitz/vl2rule/pkg/logging"
	"rgehrsitz/vl2rule/pkg/rule"
	"rgehrsitz/vl2rule/pkg/ruleset"
	"rgehrsitz/vl2rule/pkg/validator"
)

// Config represents the application configuration
type Config struct {
	LogLevel       string
	LogDestination string
	InputFormat    string
	OutputFormat   string
	BufferCapacity int
}

var errValidation = errors.New("validation failed")

const usage = `usage: vl2rule [--config file] <command> [args]

commands:
  encode <file>     encode a rule document to hex wire bytes
  decode <hex>      decode hex wire bytes to a rule document
  describe <file>   print one line per rule
  validate <file>   statically check a rule document
`

func main() {
	os.Exit(execute(os.Args, os.Stdout))
}

// execute runs the CLI and returns the process exit code: 0 on success, 2 for
// configuration errors, 1 otherwise. Failures other than validation findings
// are logged through the configured logger.
func execute(args []string, stdout io.Writer) int {
	err := run(args, stdout)
	if err == nil {
		return 0
	}
	if errors.Is(err, errValidation) {
		return 1
	}
	logging.LogError(logging.Logger, err)
	if logging.IsType(err, logging.ErrorTypeConfig) {
		return 2
	}
	return 1
}

func run(args []string, stdout io.Writer) error {
	config, rest, err := parseConfig(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := logging.ConfigureLogger(config.LogLevel, config.LogDestination); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	if len(rest) < 2 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}

	switch rest[0] {
	case "encode":
		return encodeCmd(config, rest[1], stdout)
	case "decode":
		return decodeCmd(config, rest[1], stdout)
	case "describe":
		return describeCmd(config, rest[1], stdout)
	case "validate":
		return validateCmd(config, rest[1], stdout)
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func parseConfig(args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("VL2RULE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "console")
	v.SetDefault("input.format", "json")
	v.SetDefault("output.format", "json")
	v.SetDefault("buffer.capacity", 16384)

	if *configFile == "" {
		v.SetConfigName("vl2rule_config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.vl2rule")
		v.AddConfigPath("/etc/vl2rule")
	} else {
		v.SetConfigFile(*configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || *configFile != "" {
			return nil, nil, logging.NewError(logging.ErrorTypeConfig, "error reading config file", err, map[string]interface{}{
				"path": *configFile,
			})
		}
		logging.Logger.Debug().Msg("No configuration file found, using defaults")
	}

	return &Config{
		LogLevel:       v.GetString("logging.level"),
		LogDestination: v.GetString("logging.output"),
		InputFormat:    v.GetString("input.format"),
		OutputFormat:   v.GetString("output.format"),
		BufferCapacity: v.GetInt("buffer.capacity"),
	}, fs.Args(), nil
}

// inputFormat picks the document format from the file extension, falling back
// to the configured one.
func inputFormat(config *Config, path string) (ruleset.Format, error) {
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		if f, err := ruleset.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return ruleset.ParseFormat(config.InputFormat)
}

func loadRules(config *Config, path string) ([]rule.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeIO, "failed to read rule file", err, map[string]interface{}{
			"path": path,
		})
	}
	format, err := inputFormat(config, path)
	if err != nil {
		return nil, err
	}
	return ruleset.Load(data, format)
}

func encodeCmd(config *Config, path string, stdout io.Writer) error {
	rules, err := loadRules(config, path)
	if err != nil {
		return err
	}
	data, err := ruleset.Encode(rules, config.BufferCapacity)
	if err != nil {
		return err
	}
	logging.Logger.Info().Int("rules", len(rules)).Int("bytes", len(data)).Msg("Encoded rules")
	_, err = fmt.Fprintln(stdout, hex.EncodeToString(data))
	return err
}

func decodeCmd(config *Config, encoded string, stdout io.Writer) error {
	data, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return logging.NewError(logging.ErrorTypeDecode, "invalid hex input", err, nil)
	}
	rules, normalized, err := ruleset.Decode(data)
	if err != nil {
		return err
	}
	if normalized > 0 {
		logging.Logger.Warn().Int("count", normalized).Msg("Unknown opcodes decoded as ACTION_DROP")
	}
	format, err := ruleset.ParseFormat(config.OutputFormat)
	if err != nil {
		return err
	}
	out, err := ruleset.Dump(rules, format)
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

func describeCmd(config *Config, path string, stdout io.Writer) error {
	rules, err := loadRules(config, path)
	if err != nil {
		return err
	}
	for i, r := range rules {
		if _, err := fmt.Fprintf(stdout, "%3d  %s\n", i, rule.Describe(r)); err != nil {
			return err
		}
	}
	return nil
}

func validateCmd(config *Config, path string, stdout io.Writer) error {
	rules, err := loadRules(config, path)
	if err != nil {
		return err
	}
	errs := validator.ValidateRules(rules)
	for _, err := range errs {
		fmt.Fprintln(stdout, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %d problem(s)", errValidation, len(errs))
	}
	fmt.Fprintf(stdout, "%d rules ok\n", len(rules))
	return nil
}
