package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/maruel/subcommands"
	gol "github.com/op/go-logging"

	"github.com/anirudhraja/protocodec"
)

// Exit codes.
const (
	ecOK = iota
	ecFailure
	ecBadArgs
)

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// baseCommandRun holds the flags every subcommand shares: where schemas come
// from and how verbose to be.
type baseCommandRun struct {
	subcommands.CommandRunBase

	configPath     string
	protoPaths     stringList
	schemas        stringList
	descriptorSets stringList
	strict         bool
	verbose        bool

	cfg *fileConfig
	log *gol.Logger
}

func (r *baseCommandRun) registerBaseFlags() {
	r.Flags.StringVar(&r.configPath, "config", "", "Path to a YAML config file.")
	r.Flags.Var(&r.protoPaths, "I", "Directory searched for imported .proto files. Repeatable.")
	r.Flags.Var(&r.schemas, "schema", "A .proto file or a directory of them to load. Repeatable.")
	r.Flags.Var(&r.descriptorSets, "descriptor_set", "A serialized FileDescriptorSet to load. Repeatable.")
	r.Flags.BoolVar(&r.strict, "strict", false, "Verify plain objects before encoding them.")
	r.Flags.BoolVar(&r.verbose, "v", false, "Log at DEBUG level.")
}

// setup reads the config, applies flag overrides and loads every schema.
func (r *baseCommandRun) setup(a subcommands.Application) (*protocodec.Codec, error) {
	r.log = newLogger(a.GetErr(), r.verbose)

	cfg, err := loadConfig(r.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ProtoPaths = append(cfg.ProtoPaths, r.protoPaths...)
	cfg.Schemas = append(cfg.Schemas, r.schemas...)
	cfg.DescriptorSets = append(cfg.DescriptorSets, r.descriptorSets...)
	cfg.StrictIngest = cfg.StrictIngest || r.strict
	r.cfg = cfg

	codec := protocodec.New(cfg.codecConfig())
	for _, path := range cfg.Schemas {
		r.log.Debugf("loading schema %s", path)
		if err := codec.LoadSchema(path); err != nil {
			return nil, err
		}
	}
	for _, path := range cfg.DescriptorSets {
		r.log.Debugf("loading descriptor set %s", path)
		if err := codec.LoadDescriptorSetFile(path); err != nil {
			return nil, err
		}
	}
	r.log.Debugf("registry holds %d messages, %d enums", len(codec.ListMessages()), len(codec.ListEnums()))
	return codec, nil
}

func (r *baseCommandRun) done(a subcommands.Application, err error) int {
	if err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
		return ecFailure
	}
	return ecOK
}

func (r *baseCommandRun) argErr(a subcommands.Application, usage string) int {
	fmt.Fprintf(a.GetErr(), "%s: bad arguments, usage: %s\n", a.GetName(), usage)
	return ecBadArgs
}

// openInput opens the optional input file argument, or stdin.
func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args[0])
}

// readJSON decodes one JSON document, keeping numbers as json.Number so that
// 64-bit integers survive.
func readJSON(args []string) (interface{}, error) {
	in, err := openInput(args)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	dec := json.NewDecoder(in)
	dec.UseNumber()
	var obj interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to parse JSON input: %w", err)
	}
	return obj, nil
}

func readBytes(args []string, format string) ([]byte, error) {
	in, err := openInput(args)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	switch format {
	case "binary":
		return raw, nil
	case "hex":
		return hex.DecodeString(strings.Join(strings.Fields(string(raw)), ""))
	case "base64":
		return base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func writeBytes(w io.Writer, data []byte, format string) error {
	var err error
	switch format {
	case "binary":
		_, err = w.Write(data)
	case "hex":
		_, err = fmt.Fprintln(w, hex.EncodeToString(data))
	case "base64":
		_, err = fmt.Fprintln(w, base64.StdEncoding.EncodeToString(data))
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}
