/*
 * S370 - Main process.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/peterh/liner"

	getopt "github.com/pborman/getopt/v2"

	"github.com/jihoonsong/sicxe/command/repl"
	"github.com/jihoonsong/sicxe/emu/opcode"
	"github.com/jihoonsong/sicxe/emu/state"
	logger "github.com/jihoonsong/sicxe/util/logger"
)

var Logger *slog.Logger

func main() {
	optOpcodes := getopt.StringLong("opcodes", 'o', "", "Opcode table file (built-in SIC/XE set if omitted)")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if optLogFile != nil && *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	debug := false
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &debug))
	slog.SetDefault(Logger)

	Logger.Info("sicxe started")

	table := opcode.Standard()
	if optOpcodes != nil && *optOpcodes != "" {
		loaded, err := opcode.LoadFile(*optOpcodes)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		table = loaded
	}

	sess := state.New(table)

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		return repl.CompleteCmd(input)
	})

	for {
		command, err := line.Prompt("sicxe> ")
		if err == nil {
			line.AppendHistory(command)
			quit, cmdErr := repl.ProcessCommand(command, sess)
			if cmdErr != nil {
				fmt.Println("Error: " + cmdErr.Error())
			}
			if quit {
				break
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			break
		}
		Logger.Error("error reading line: " + err.Error())
	}

	Logger.Info("sicxe shutting down")
}
