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
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muellan/rmapalign3n/rmapalign3n/db"
	"github.com/muellan/rmapalign3n/rmapalign3n/sketch"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a database of reference sequences",
	Long: `Build a database of reference sequences

Usage:
  rmapalign3n build <database> <sequence file/directory>... [flags]

Input:
  1. Plain or gzipped FASTA/Q files given as positional arguments.
  2. If directory names are given, they are searched for sequence
     files (at most 10 levels deep).

Every sequence record becomes one target; the record id (the first
word of the header) is the target name and must be unique.

The database contains windowed min-hash sketches of the 3N-converted
reference sequences. The conversion (default: C -> T, for BS-seq)
replaces every occurrence of the original base before k-mers are
encoded, so converted reads still match their region of origin.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		timeStart := time.Now()
		outputLog := opt.Verbose || opt.Log2File
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		if len(args) < 2 {
			checkError(fmt.Errorf("a database name and at least one sequence file/directory are needed"))
		}
		dbFile := sanitizeDBName(args[0])

		// ---------------------------------------------------------------
		// sketching flags

		k := getFlagPositiveInt(cmd, "kmerlen")
		if k > 32 {
			checkError(fmt.Errorf("the value of flag --kmerlen should be in range of [1, 32]"))
		}
		sketchlen := getFlagPositiveInt(cmd, "sketchlen")
		winlen := getFlagPositiveInt(cmd, "winlen")
		winstride := getFlagNonNegativeInt(cmd, "winstride")
		seed := getFlagPositiveInt(cmd, "hash-seed")
		convOrig, convRepl := getConversion(cmd)

		sketcher, err := sketch.New(sketch.Options{
			K:         k,
			WinLen:    winlen,
			WinStride: winstride,
			SketchLen: sketchlen,
			ConvOrig:  convOrig,
			ConvRepl:  convRepl,
			Seed:      uint64(seed),
		})
		checkError(err)

		// ---------------------------------------------------------------
		// storage flags

		maxLocs := getFlagInt(cmd, "max-locations-per-feature")
		if maxLocs <= 0 {
			maxLocs = db.MaxSupportedLocationsPerFeature
		}
		removeOverpopulated := getFlagBool(cmd, "remove-overpopulated-features")
		maxAmbig := getFlagInt(cmd, "max-ambig-per-feature")
		maxLoadFactor := getFlagNonNegativeFloat64(cmd, "max-load-fac")

		// ---------------------------------------------------------------
		// input files

		if outputLog {
			log.Infof("rmapalign3n v%s", VERSION)
			log.Info()
			log.Info("checking input files ...")
		}

		files := expandFileList(args[1:], opt.NumCPUs)
		if len(files) < 1 {
			checkError(fmt.Errorf("no reference sequence files provided or found"))
		}
		if outputLog {
			log.Infof("  %d input file(s) given", len(files))
			log.Info()
			log.Infof("k-mer length: %d, sketch length: %d", k, sketchlen)
			log.Infof("window length: %d, window stride: %d", winlen, sketcher.WindowStride())
			log.Infof("conversion: %c -> %c", convOrig, convRepl)
			log.Infof("max locations per feature: %d", maxLocs)
			log.Info()
			log.Info("building database ...")
		}

		// ---------------------------------------------------------------
		// ingestion

		database := db.New(sketcher)
		database.SetMaxLocationsPerFeature(maxLocs)
		if maxLoadFactor > 0 {
			database.SetMaxLoadFactor(maxLoadFactor)
		}

		var pbs *mpb.Progress
		var bar *mpb.Bar
		showProgress := opt.Verbose && !opt.Log2File
		if showProgress {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(files)),
				mpb.PrependDecorators(
					decor.Name("processed files: ", decor.WC{W: len("processed files: "), C: decor.DindentRight}),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 10),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)
		}

		var records, skipped uint64
		for _, file := range files {
			fileStart := time.Now()

			reader, err := fastx.NewReader(nil, file, "")
			checkError(err)

			var index uint64
			for {
				record, err := reader.Read()
				if err != nil {
					if err == io.EOF {
						break
					}
					checkError(err)
				}

				name := string(record.ID)
				added, err := database.AddTarget(
					bytes.ToUpper(record.Seq.Seq), name,
					db.FileSource{Filename: file, Index: index})
				if err != nil {
					checkError(err)
				}
				if !added {
					log.Warningf("duplicate target name skipped: %s (%s)", name, file)
					skipped++
				} else {
					records++
				}
				index++

				if database.AddTargetFailed() {
					checkError(database.WaitUntilAddTargetComplete())
				}
			}
			reader.Close()

			if showProgress {
				bar.EwmaIncrBy(1, time.Since(fileStart))
			}
		}
		checkError(database.WaitUntilAddTargetComplete())

		if showProgress {
			pbs.Wait()
		}

		// ---------------------------------------------------------------
		// post-processing

		if removeOverpopulated {
			// buckets are capped at the limit during ingestion, so the
			// features that reached it are those with more than limit-1
			n := database.RemoveFeaturesWithMoreLocationsThan(database.MaxLocationsPerFeature() - 1)
			if outputLog {
				log.Infof("removed %d overpopulated features", n)
			}
		}
		if maxAmbig > 0 {
			n := database.RemoveAmbiguousFeatures(maxAmbig)
			if outputLog {
				log.Infof("removed %d features with locations in more than %d targets", n, maxAmbig)
			}
		}

		// ---------------------------------------------------------------
		// serialization

		if outputLog {
			log.Info()
			log.Infof("targets: %d added, %d skipped", records, skipped)
			log.Infof("features: %d, locations: %d", database.FeatureCount(), database.LocationCount())
			log.Infof("writing database: %s", dbFile)
		}

		_, err = database.WriteToFile(dbFile)
		checkError(err)
		checkError(database.WriteInfoFile(dbFile))

		if outputLog {
			log.Infof("database saved: %s", dbFile)
		}
	},
}

// getConversion parses the --conv flag ("orig,repl").
func getConversion(cmd *cobra.Command) (byte, byte) {
	conv := getFlagStringSlice(cmd, "conv")
	if len(conv) != 2 || len(conv[0]) != 1 || len(conv[1]) != 1 {
		checkError(fmt.Errorf("flag --conv expects two single-letter bases, e.g. --conv C,T"))
	}
	return conv[0][0], conv[1][0]
}

func init() {
	RootCmd.AddCommand(buildCmd)

	// -----------------------------  sketching  -----------------------------

	buildCmd.Flags().IntP("kmerlen", "k", 16,
		formatFlagUsage(`Number of nucleotides in a k-mer. K needs to be <= 32.`))

	buildCmd.Flags().IntP("sketchlen", "s", 16,
		formatFlagUsage(`Number of features (k-mer hashes) per sampling window.`))

	buildCmd.Flags().IntP("winlen", "w", 128,
		formatFlagUsage(`Number of letters in each sampling window.`))

	buildCmd.Flags().IntP("winstride", "l", 0,
		formatFlagUsage(`Distance between window starting positions (0 means w-k+1).`))

	buildCmd.Flags().StringSliceP("conv", "c", []string{"C", "T"},
		formatFlagUsage(`Nucleotide conversion original,replacement. Example for BS-seq: --conv C,T.`))

	buildCmd.Flags().IntP("hash-seed", "", 1,
		formatFlagUsage(`Seed of the feature hash. Stored in the database.`))

	// -----------------------------  storage  -----------------------------

	buildCmd.Flags().IntP("max-locations-per-feature", "", -1,
		formatFlagUsage(`Maximum number of reference sequence locations to be stored per feature (<=0 for the hard limit imposed by the bucket size type).`))

	buildCmd.Flags().BoolP("remove-overpopulated-features", "", false,
		formatFlagUsage(`Remove all features that have reached the maximum allowed amount of locations per feature.`))

	buildCmd.Flags().IntP("max-ambig-per-feature", "", 0,
		formatFlagUsage(`Maximum number of allowed different targets per feature; features exceeding the limit are removed (0 for off).`))

	buildCmd.Flags().Float64P("max-load-fac", "", 0,
		formatFlagUsage(`Maximum hash table load factor (0 for the default).`))

	buildCmd.SetUsageTemplate(usageTemplate("<database> <sequence file/directory>... [flags]"))
}
