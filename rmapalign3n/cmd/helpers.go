// Copyright © 2024 André Müller (muellan@uni-mainz.de)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/iafan/cwalk"
	"github.com/klauspost/pgzip"
	colorable "github.com/mattn/go-colorable"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	logging "github.com/shenwei356/go-logging"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
)

func checkError(err error) {
	if err != nil {
		log.Error(err)
		os.Exit(-1)
	}
}

func isStdin(file string) bool {
	return file == "-"
}

// ---------------------------------------------------------------
// flag getters

func getFlagBool(cmd *cobra.Command, flag string) bool {
	value, err := cmd.Flags().GetBool(flag)
	checkError(err)
	return value
}

func getFlagInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	return value
}

func getFlagPositiveInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	if value <= 0 {
		checkError(fmt.Errorf("value of flag --%s should be greater than 0", flag))
	}
	return value
}

func getFlagNonNegativeInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	if value < 0 {
		checkError(fmt.Errorf("value of flag --%s should be greater than or equal to 0", flag))
	}
	return value
}

func getFlagFloat64(cmd *cobra.Command, flag string) float64 {
	value, err := cmd.Flags().GetFloat64(flag)
	checkError(err)
	return value
}

func getFlagNonNegativeFloat64(cmd *cobra.Command, flag string) float64 {
	value, err := cmd.Flags().GetFloat64(flag)
	checkError(err)
	if value < 0 {
		checkError(fmt.Errorf("value of flag --%s should be greater than or equal to 0", flag))
	}
	return value
}

func getFlagString(cmd *cobra.Command, flag string) string {
	value, err := cmd.Flags().GetString(flag)
	checkError(err)
	return value
}

func getFlagStringSlice(cmd *cobra.Command, flag string) []string {
	value, err := cmd.Flags().GetStringSlice(flag)
	checkError(err)
	return value
}

// ---------------------------------------------------------------
// logging

func addLog(logfile string, verbose bool) *os.File {
	fh, err := os.Create(logfile)
	checkError(errors.Wrap(err, logfile))

	// also write to the log file
	logging.SetBackend(
		logging.NewBackendFormatter(
			logging.NewLogBackend(colorable.NewColorableStderr(), "", 0),
			logFormat),
		logging.NewBackendFormatter(
			logging.NewLogBackend(fh, "", 0),
			logFormatPlain))
	if !verbose {
		logging.SetLevel(logging.ERROR, "rmapalign3n")
	}
	return fh
}

// ---------------------------------------------------------------
// output streams

// outStream returns a buffered writer over file ("-" for stdout),
// optionally gzip-compressed.
func outStream(file string, gzipped bool, level int) (*bufio.Writer, io.WriteCloser, *os.File, error) {
	var w *os.File
	if isStdin(file) {
		w = os.Stdout
	} else {
		var err error
		w, err = os.Create(file)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "fail to write %s", file)
		}
	}

	if gzipped {
		if level == 0 {
			level = pgzip.DefaultCompression
		}
		gw, err := pgzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "fail to write %s", file)
		}
		return bufio.NewWriterSize(gw, 65536), gw, w, nil
	}
	return bufio.NewWriterSize(w, 65536), nil, w, nil
}

// ---------------------------------------------------------------
// input files

// reSeqFile matches common FASTA/FASTQ file names, compressed or not.
var reSeqFile = regexp.MustCompile(`(?i)\.(f[aq](st[aq])?|fna)(\.gz|\.xz|\.zst|\.bz2)?$`)

// maxDirDepth bounds directory expansion.
const maxDirDepth = 10

// expandFileList replaces directories in the list with the sequence
// files they contain (at most maxDirDepth levels deep, symlinks
// followed) and expands ~ in paths.
func expandFileList(names []string, threads int) []string {
	files := make([]string, 0, len(names))
	for _, name := range names {
		if isStdin(name) {
			files = append(files, name)
			continue
		}

		name, err := homedir.Expand(name)
		checkError(err)

		isDir, err := pathutil.IsDir(name)
		if err != nil || !isDir {
			files = append(files, name)
			continue
		}

		found := make([]string, 0, 512)
		ch := make(chan string, threads)
		done := make(chan int)
		go func() {
			for file := range ch {
				found = append(found, file)
			}
			done <- 1
		}()

		cwalk.NumWorkers = threads
		err = cwalk.WalkWithSymlinks(name, func(_path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if strings.Count(_path, string(os.PathSeparator)) >= maxDirDepth {
				return nil
			}
			if reSeqFile.MatchString(info.Name()) {
				ch <- filepath.Join(name, _path)
			}
			return nil
		})
		close(ch)
		<-done
		checkError(errors.Wrapf(err, "walking dir: %s", name))

		files = append(files, found...)
	}
	return files
}

// sanitizeDBName appends the .db extension when missing.
func sanitizeDBName(name string) string {
	name, err := homedir.Expand(name)
	checkError(err)
	if !strings.Contains(name, ".db") {
		name += ".db"
	}
	return name
}

// ---------------------------------------------------------------
// usage

func formatFlagUsage(usage string) string {
	return strings.ReplaceAll(usage, "\n", " ")
}

func usageTemplate(s string) string {
	if s != "" {
		s = "  {{.CommandPath}} " + s + "\n\n"
	} else {
		s = "{{if .Runnable}}  {{.UseLine}}\n{{end}}{{if .HasAvailableSubCommands}}  {{.CommandPath}} [command]{{end}}\n\n"
	}
	return `Usage:

` + s + `{{if gt (len .Aliases) 0}}Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasAvailableSubCommands}}Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsagesWrapped 110 | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsagesWrapped 110 | trimTrailingWhitespaces}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
}
