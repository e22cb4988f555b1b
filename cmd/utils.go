package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// EnumValue is a flag restricted to a fixed set of names, each with a help text
type EnumValue struct {
	value      string
	defaultVal string
	help       map[string]string
}

func NewEnumValue(defaultVal string, help map[string]string) EnumValue {
	if _, ok := help[defaultVal]; !ok {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return EnumValue{value: defaultVal, defaultVal: defaultVal, help: help}
}

func (e *EnumValue) String() string { return e.value }
func (e *EnumValue) Type() string   { return "enum" }
func (e *EnumValue) Value() string  { return e.value }

// HelpString lists the allowed names, e.g. "[native, ninja, vs2022]"
func (e *EnumValue) HelpString() string {
	return "[" + strings.Join(e.AllowedKeys(), ", ") + "]"
}

// Set accepts an allowed name. An empty string restores the default, so an
// unset EXTBUILD_* variable behaves like an absent flag.
func (e *EnumValue) Set(v string) error {
	if v == "" {
		v = e.defaultVal
	}
	if _, ok := e.help[v]; !ok {
		return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
	}
	e.value = v
	return nil
}

func (e *EnumValue) AllowedKeys() []string {
	return slices.Sorted(maps.Keys(e.help))
}

func (e *EnumValue) CompletionFunc() cobra.CompletionFunc {
	var choices []cobra.Completion
	for _, k := range e.AllowedKeys() {
		choices = append(choices, cobra.CompletionWithDesc(k, e.help[k]))
	}
	return cobra.FixedCompletions(choices, cobra.ShellCompDirectiveNoFileComp)
}
