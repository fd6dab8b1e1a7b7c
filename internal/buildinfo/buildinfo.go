// Package buildinfo describes the running binary.
package buildinfo

import (
	"fmt"
	"runtime"
)

const ProjectName = "botmanager"

// Version is set at link time: -ldflags "-X github.com/bloops-games/botmanager/internal/buildinfo.Version=v1.2.3"
var Version = "dev"

const GreetingCLI = "%s %s (%s)\nKeeps bots populating game servers.\n\n"

func Greeting() string {
	return fmt.Sprintf(GreetingCLI, ProjectName, Version, runtime.Version())
}
