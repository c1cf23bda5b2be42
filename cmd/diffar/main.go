package main

import "errors"
import "fmt"
import "os"

import "github.com/neurlang/diffar/trainer"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		var fatal *trainer.FatalError
		if errors.As(err, &fatal) {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", fatal)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
