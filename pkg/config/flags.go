package config

import (
	"strconv"

	"github.com/joho/godotenv"
	flags "github.com/jessevdk/go-flags"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/probe"
	"github.com/core-tools/hsu-watchdog/pkg/remediation"
)

// CommonOptions are the flags shared by both command variants
type CommonOptions struct {
	ConfigFile  string `long:"config" env:"WATCHDOG_CONFIG" description:"YAML configuration file used instead of positional arguments"`
	EnvFile     string `long:"env-file" description:"dotenv file loaded into the environment before WATCHDOG_* variables are read"`
	LogLevel    string `long:"log-level" env:"WATCHDOG_LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"diagnostic log level"`
	LogFormat   string `long:"log-format" env:"WATCHDOG_LOG_FORMAT" default:"console" choice:"console" choice:"json" choice:"text" description:"diagnostic log format"`
	MetricsFile string `long:"metrics-file" env:"WATCHDOG_METRICS_FILE" description:"Prometheus text file rewritten after every cycle"`
	BufferSize  int    `long:"buffer-size" env:"WATCHDOG_BUFFER_SIZE" description:"response read buffer size in bytes"`
}

// PortableArgs are the positional arguments of the URL form
type PortableArgs struct {
	Delay       string `positional-arg-name:"delay" description:"wait before each probe, seconds or duration"`
	Timeout     string `positional-arg-name:"timeout" description:"whole request budget, seconds or duration"`
	Certificate string `positional-arg-name:"certificate" description:"pinned server certificate, DER or PEM"`
	URL         string `positional-arg-name:"url" description:"https URL to probe"`
	Healthy     string `positional-arg-name:"healthy" description:"command run when the response carries a signal"`
	Repair      string `positional-arg-name:"repair" description:"command run when the probe fails"`
}

// NativeArgs are the positional arguments of the host/port/path form
type NativeArgs struct {
	Delay       string `positional-arg-name:"delay" description:"wait before each probe, seconds or duration"`
	Timeout     string `positional-arg-name:"timeout" description:"whole request budget, seconds or duration"`
	Certificate string `positional-arg-name:"certificate" description:"pinned server certificate, DER or PEM"`
	Host        string `positional-arg-name:"host" description:"server host name"`
	Port        string `positional-arg-name:"port" description:"server TCP port"`
	Path        string `positional-arg-name:"path" description:"request path"`
	Healthy     string `positional-arg-name:"healthy" description:"command run when the response carries a signal"`
	Repair      string `positional-arg-name:"repair" description:"command run when the probe fails"`
}

type portableOptions struct {
	CommonOptions
	Args PortableArgs `positional-args:"yes"`
}

type nativeOptions struct {
	CommonOptions
	Args NativeArgs `positional-args:"yes"`
}

// Parse builds the startup configuration from the command line. Help
// requests surface as a *flags.Error with type flags.ErrHelp.
func Parse(variant Variant, argv []string) (*Config, error) {
	common, positional, err := parseFlags(variant, argv)
	if err != nil {
		return nil, err
	}

	if common.EnvFile != "" {
		if err := godotenv.Load(common.EnvFile); err != nil {
			return nil, errors.NewIOError("failed to load env file", err).WithContext("filename", common.EnvFile)
		}
		// environment defaults are resolved during parsing
		if common, positional, err = parseFlags(variant, argv); err != nil {
			return nil, err
		}
	}

	var config *Config
	switch {
	case common.ConfigFile != "" && positional.given():
		return nil, errors.NewValidationError("positional arguments cannot be combined with --config", nil)
	case common.ConfigFile != "":
		if config, err = LoadConfigFromFile(common.ConfigFile, variant); err != nil {
			return nil, err
		}
	default:
		if config, err = positional.toConfig(variant); err != nil {
			return nil, err
		}
	}

	config.Log = LogConfig{Level: common.LogLevel, Format: common.LogFormat}
	if common.MetricsFile != "" {
		config.MetricsFile = common.MetricsFile
	}
	if common.BufferSize != 0 {
		config.BufferSize = common.BufferSize
	}

	setConfigDefaults(config)

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// IsHelp reports whether err is a help request from the parser
func IsHelp(err error) bool {
	flagsErr, ok := err.(*flags.Error)
	return ok && flagsErr.Type == flags.ErrHelp
}

// positionalValues is the variant independent view of the positional arguments
type positionalValues struct {
	values   []string
	names    []string
	extra    []string
	delay    string
	timeout  string
	cert     string
	target   func() (probe.Target, error)
	commands remediation.Commands
}

func (p positionalValues) given() bool {
	if len(p.extra) > 0 {
		return true
	}
	for _, v := range p.values {
		if v != "" {
			return true
		}
	}
	return false
}

func (p positionalValues) toConfig(variant Variant) (*Config, error) {
	for i, v := range p.values {
		if v == "" {
			return nil, errors.NewValidationError("missing argument: "+p.names[i], nil).
				WithContext("expected", len(p.names))
		}
	}

	target, err := p.target()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Variant:     variant,
		Certificate: p.cert,
		Target:      target,
		Commands:    p.commands,
		ExtraArgs:   p.extra,
	}
	if config.Delay, err = ParseInterval("delay", p.delay); err != nil {
		return nil, err
	}
	if config.Timeout, err = ParseInterval("timeout", p.timeout); err != nil {
		return nil, err
	}
	return config, nil
}

func parseFlags(variant Variant, argv []string) (CommonOptions, positionalValues, error) {
	switch variant {
	case VariantPortable:
		var opts portableOptions
		extra, err := parseArgs(&opts, "watchdogsrv", argv)
		if err != nil {
			return CommonOptions{}, positionalValues{}, err
		}
		a := opts.Args
		return opts.CommonOptions, positionalValues{
			values:   []string{a.Delay, a.Timeout, a.Certificate, a.URL, a.Healthy, a.Repair},
			names:    []string{"delay", "timeout", "certificate", "url", "healthy", "repair"},
			extra:    extra,
			delay:    a.Delay,
			timeout:  a.Timeout,
			cert:     a.Certificate,
			target:   func() (probe.Target, error) { return probe.Target{URL: a.URL}, nil },
			commands: remediation.Commands{Healthy: a.Healthy, Repair: a.Repair},
		}, nil

	case VariantNative:
		var opts nativeOptions
		extra, err := parseArgs(&opts, "watchdognative", argv)
		if err != nil {
			return CommonOptions{}, positionalValues{}, err
		}
		a := opts.Args
		return opts.CommonOptions, positionalValues{
			values:  []string{a.Delay, a.Timeout, a.Certificate, a.Host, a.Port, a.Path, a.Healthy, a.Repair},
			names:   []string{"delay", "timeout", "certificate", "host", "port", "path", "healthy", "repair"},
			extra:   extra,
			delay:   a.Delay,
			timeout: a.Timeout,
			cert:    a.Certificate,
			target: func() (probe.Target, error) {
				port, err := strconv.Atoi(a.Port)
				if err != nil {
					return probe.Target{}, errors.NewValidationError("invalid port: "+a.Port, err)
				}
				return probe.Target{Host: a.Host, Port: port, Path: a.Path}, nil
			},
			commands: remediation.Commands{Healthy: a.Healthy, Repair: a.Repair},
		}, nil

	default:
		return CommonOptions{}, positionalValues{}, errors.NewValidationError("unknown variant: "+string(variant), nil)
	}
}

// parseArgs returns the arguments left after the declared positionals
func parseArgs(data interface{}, name string, argv []string) ([]string, error) {
	parser := flags.NewParser(data, flags.HelpFlag)
	parser.Name = name
	return parser.ParseArgs(argv)
}
