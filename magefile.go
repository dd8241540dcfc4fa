//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

var commands = []string{
	"clustenereso",
	"clustangreso",
	"hitangreso",
	"resogen",
	"bicmobo",
}

// Default target to run when none is specified
var Default = Build

// Build compiles every command into ./bin.
func Build() error {
	for _, name := range commands {
		if err := buildCommand(name); err != nil {
			return err
		}
	}
	fmt.Println("Compilation finished")
	return nil
}

// Test runs the unit tests.
func Test() error {
	return run("go", "test", "./...")
}

// Install puts the commands in $GOBIN for use by the optimization jobs.
func Install() error {
	mg.Deps(Test)
	args := []string{"install"}
	for _, name := range commands {
		args = append(args, "./"+name)
	}
	return run("go", args...)
}

func buildCommand(name string) error {
	fmt.Printf("Building %s executable...\n", name)
	return run("go", "build", "-o", "./bin/"+name, "./"+name)
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
