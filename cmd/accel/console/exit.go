package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit builds an error that makes the program exit with code after printing msg in red.
func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf("%s: %s", Red("ERROR"), fmt.Sprintf(msg, args...)), code)
}
