package cmds

import "os"

// GlobalExecutor collects the flags and commands packages define in init.
var GlobalExecutor = NewExecutor()

func Define(name string, command *Command) {
	GlobalExecutor.Define(name, command)
}

// Execute runs the process arguments against GlobalExecutor.
func Execute() error {
	return GlobalExecutor.Execute(os.Args[1:])
}
