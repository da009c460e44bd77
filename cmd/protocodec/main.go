// Command protocodec converts between JSON objects and protobuf bytes using
// schemas loaded at runtime from .proto files or descriptor sets.
package main

import (
	"io"
	"os"

	"github.com/maruel/subcommands"
)

// application lets tests capture output.
type application struct {
	subcommands.DefaultApplication
	out io.Writer
	err io.Writer
}

func (a *application) GetOut() io.Writer { return a.out }
func (a *application) GetErr() io.Writer { return a.err }

func newApplication(out, errOut io.Writer) *application {
	return &application{
		DefaultApplication: subcommands.DefaultApplication{
			Name:  "protocodec",
			Title: "Schema-driven protobuf encoder and decoder.",
			Commands: []*subcommands.Command{
				cmdEncode(),
				cmdDecode(),
				cmdVerify(),
				cmdTypes(),
				cmdReverse(),
				subcommands.CmdHelp,
			},
		},
		out: out,
		err: errOut,
	}
}

func main() {
	os.Exit(subcommands.Run(newApplication(os.Stdout, os.Stderr), nil))
}
