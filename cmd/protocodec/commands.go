package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/maruel/subcommands"

	"github.com/anirudhraja/protocodec/reverse"
	"github.com/anirudhraja/protocodec/schema"
)

const formatHelp = "Byte format: binary, hex or base64."

////////////////////////////////////////////////////////////////////////////////
// encode

const cmdEncodeUsage = `encode [flags] <type> [input.json]`

func cmdEncode() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: cmdEncodeUsage,
		ShortDesc: "converts a JSON object to protobuf bytes",
		LongDesc: `Reads a JSON object from the input file, or stdin, and writes the
protobuf encoding of <type> to stdout.`,
		CommandRun: func() subcommands.CommandRun {
			r := &encodeRun{}
			r.registerBaseFlags()
			r.Flags.StringVar(&r.format, "format", "binary", formatHelp)
			return r
		},
	}
}

type encodeRun struct {
	baseCommandRun
	format string
}

func (r *encodeRun) Run(a subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) < 1 || len(args) > 2 {
		return r.argErr(a, cmdEncodeUsage)
	}
	codec, err := r.setup(a)
	if err != nil {
		return r.done(a, err)
	}
	obj, err := readJSON(args[1:])
	if err != nil {
		return r.done(a, err)
	}
	data, err := codec.Encode(args[0], obj)
	if err != nil {
		return r.done(a, err)
	}
	r.log.Debugf("encoded %s into %d bytes", args[0], len(data))
	return r.done(a, writeBytes(a.GetOut(), data, r.format))
}

////////////////////////////////////////////////////////////////////////////////
// decode

const cmdDecodeUsage = `decode [flags] <type> [input]`

func cmdDecode() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: cmdDecodeUsage,
		ShortDesc: "converts protobuf bytes to a JSON object",
		LongDesc: `Reads the protobuf encoding of <type> from the input file, or stdin, and
writes it to stdout as a JSON object. Rendering flags override the
to_object section of the config file.`,
		CommandRun: func() subcommands.CommandRun {
			r := &decodeRun{}
			r.registerBaseFlags()
			r.Flags.StringVar(&r.format, "format", "binary", formatHelp)
			r.Flags.StringVar(&r.longs, "longs", "", "64-bit integers as number or string.")
			r.Flags.StringVar(&r.enums, "enums", "", "Enums as number or string.")
			r.Flags.StringVar(&r.bytes, "bytes", "", "Bytes as base64 or array.")
			r.Flags.BoolVar(&r.defaults, "defaults", false, "Include absent fields with their defaults.")
			r.Flags.BoolVar(&r.jsonNames, "json_names", false, "Key fields by JSON name.")
			r.Flags.BoolVar(&r.wellKnown, "wkt", false, "Render well-known types in their JSON form.")
			return r
		},
	}
}

type decodeRun struct {
	baseCommandRun
	format    string
	longs     string
	enums     string
	bytes     string
	defaults  bool
	jsonNames bool
	wellKnown bool
}

func (r *decodeRun) Run(a subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) < 1 || len(args) > 2 {
		return r.argErr(a, cmdDecodeUsage)
	}
	codec, err := r.setup(a)
	if err != nil {
		return r.done(a, err)
	}

	tc := r.cfg.ToObject
	if r.longs != "" {
		tc.Longs = r.longs
	}
	if r.enums != "" {
		tc.Enums = r.enums
	}
	if r.bytes != "" {
		tc.Bytes = r.bytes
	}
	tc.Defaults = tc.Defaults || r.defaults
	tc.JSONNames = tc.JSONNames || r.jsonNames
	tc.WellKnownJSON = tc.WellKnownJSON || r.wellKnown
	opts, err := tc.options()
	if err != nil {
		return r.done(a, err)
	}

	data, err := readBytes(args[1:], r.format)
	if err != nil {
		return r.done(a, err)
	}
	r.log.Debugf("decoding %d bytes as %s", len(data), args[0])
	obj, err := codec.Decode(args[0], data, opts)
	if err != nil {
		return r.done(a, err)
	}
	return r.done(a, writeJSON(a.GetOut(), obj))
}

////////////////////////////////////////////////////////////////////////////////
// verify

const cmdVerifyUsage = `verify [flags] <type> [input.json]`

func cmdVerify() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: cmdVerifyUsage,
		ShortDesc: "checks a JSON object against a message type",
		CommandRun: func() subcommands.CommandRun {
			r := &verifyRun{}
			r.registerBaseFlags()
			return r
		},
	}
}

type verifyRun struct {
	baseCommandRun
}

func (r *verifyRun) Run(a subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) < 1 || len(args) > 2 {
		return r.argErr(a, cmdVerifyUsage)
	}
	codec, err := r.setup(a)
	if err != nil {
		return r.done(a, err)
	}
	obj, err := readJSON(args[1:])
	if err != nil {
		return r.done(a, err)
	}
	if err := codec.Verify(args[0], obj); err != nil {
		return r.done(a, err)
	}
	fmt.Fprintln(a.GetOut(), "OK")
	return ecOK
}

////////////////////////////////////////////////////////////////////////////////
// types

const cmdTypesUsage = `types [flags] [name]`

func cmdTypes() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: cmdTypesUsage,
		ShortDesc: "lists loaded types or prints the fields of one message",
		CommandRun: func() subcommands.CommandRun {
			r := &typesRun{}
			r.registerBaseFlags()
			return r
		},
	}
}

type typesRun struct {
	baseCommandRun
}

func (r *typesRun) Run(a subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) > 1 {
		return r.argErr(a, cmdTypesUsage)
	}
	codec, err := r.setup(a)
	if err != nil {
		return r.done(a, err)
	}
	out := a.GetOut()

	if len(args) == 0 {
		for _, name := range codec.ListMessages() {
			fmt.Fprintf(out, "message %s\n", name)
		}
		for _, name := range codec.ListEnums() {
			fmt.Fprintf(out, "enum %s\n", name)
		}
		for _, name := range codec.ListServices() {
			fmt.Fprintf(out, "service %s\n", name)
		}
		return ecOK
	}

	reg := codec.Registry()
	if msg, err := reg.GetMessage(args[0]); err == nil {
		printMessage(out, msg)
		return ecOK
	}
	if enum, err := reg.GetEnum(args[0]); err == nil {
		fmt.Fprintf(out, "enum %s {\n", enum.FullName)
		for _, v := range enum.Values {
			fmt.Fprintf(out, "  %s = %d;\n", v.Name, v.Number)
		}
		fmt.Fprintln(out, "}")
		return ecOK
	}
	return r.done(a, fmt.Errorf("no message or enum named %s", args[0]))
}

func printMessage(w io.Writer, msg *schema.Message) {
	fmt.Fprintf(w, "message %s {\n", msg.FullName)
	for _, f := range msg.FieldsByNumber() {
		label := ""
		switch f.Label {
		case schema.LabelOptional, schema.LabelRequired, schema.LabelRepeated:
			if f.Type.Kind != schema.KindMap {
				label = string(f.Label) + " "
			}
		}
		if oneof := msg.OneofOf(f); oneof != nil {
			label = "oneof " + oneof.Name + " "
		}
		fmt.Fprintf(w, "  %s%s %s = %d;\n", label, typeString(&f.Type), f.Name, f.Number)
	}
	fmt.Fprintln(w, "}")
}

func typeString(ft *schema.FieldType) string {
	switch ft.Kind {
	case schema.KindMessage:
		return ft.MessageType
	case schema.KindEnum:
		return ft.EnumType
	case schema.KindMap:
		return fmt.Sprintf("map<%s, %s>", typeString(ft.MapKey), typeString(ft.MapValue))
	}
	return string(ft.PrimitiveType)
}

////////////////////////////////////////////////////////////////////////////////
// reverse

const cmdReverseUsage = `reverse [flags] <text>...`

func cmdReverse() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: cmdReverseUsage,
		ShortDesc: "runs the StringReverse sample handler",
		LongDesc: `Encodes a StringReverseRequest for the text, passes it to the sample
handler and prints both encodings and the decoded response.`,
		CommandRun: func() subcommands.CommandRun {
			r := &reverseRun{}
			r.registerBaseFlags()
			return r
		},
	}
}

type reverseRun struct {
	baseCommandRun
}

func (r *reverseRun) Run(a subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) == 0 {
		return r.argErr(a, cmdReverseUsage)
	}
	codec, err := r.setup(a)
	if err != nil {
		return r.done(a, err)
	}
	if err := codec.Register(reverse.File()); err != nil {
		return r.done(a, err)
	}

	req := reverse.StringReverseRequest{UserString: strings.Join(args, " ")}
	reqBytes, err := req.Marshal()
	if err != nil {
		return r.done(a, err)
	}
	respBytes, err := reverse.Handle(reqBytes)
	if err != nil {
		return r.done(a, err)
	}
	resp, err := codec.Unmarshal(reverse.ResponseType, respBytes)
	if err != nil {
		return r.done(a, err)
	}

	out := a.GetOut()
	fmt.Fprintf(out, "request:  % X\n", reqBytes)
	fmt.Fprintf(out, "response: % X\n", respBytes)
	return r.done(a, writeJSON(out, resp))
}
