package cmds

import (
	"fmt"
	"io"
	"maps"
	"os"
	"reflect"
	"slices"
	"strings"
)

func (p *Executor) PrintUsage() {
	p.WriteUsage(os.Stderr)
}

func (p *Executor) WriteUsage(w io.Writer) {
	// aliases share the command pointer; print each command once
	printed := make(map[*Command]bool)
	for _, name := range slices.Sorted(maps.Keys(p.commands)) {
		command := p.commands[name]
		if printed[command] {
			continue
		}
		printed[command] = true
		writeCommand(w, name, command, 0)
	}
}

func writeCommand(w io.Writer, name string, command *Command, depth int) {
	if command == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	names := append([]string{name}, command.Aliases...)
	line := indent + strings.Join(names, ", ")
	if args := argNames(command); args != "" {
		line += " " + args
	}
	if command.Description != "" {
		fmt.Fprintf(w, "%-32s %s\n", line, command.Description)
	} else {
		fmt.Fprintln(w, line)
	}
	for _, sub := range slices.Sorted(maps.Keys(command.Subs)) {
		writeCommand(w, sub, command.Subs[sub], depth+1)
	}
}

func argNames(command *Command) string {
	if !command.Func.IsValid() {
		return ""
	}
	t := command.Func.Type()
	var parts []string
	for i := range t.NumIn() {
		in := t.In(i)
		optional := in.Kind() == reflect.Pointer
		if optional {
			in = in.Elem()
		}
		name := in.Kind().String()
		if in == durationType {
			name = "duration"
		}
		if i < len(command.ArgNames) {
			name = command.ArgNames[i]
		}
		if optional {
			parts = append(parts, "["+name+"]")
		} else {
			parts = append(parts, "<"+name+">")
		}
	}
	return strings.Join(parts, " ")
}
