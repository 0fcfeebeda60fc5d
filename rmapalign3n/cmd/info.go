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
	"os"

	"github.com/muellan/rmapalign3n/rmapalign3n/db"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information stored in a database",
	Long: `Show information stored in a database

Usage:
  rmapalign3n info <database>                      basic properties
  rmapalign3n info <database> targets [<name>...]  reference metadata
  rmapalign3n info <database> statistics           hash table properties
  rmapalign3n info <database> locations            feature -> location list map
  rmapalign3n info <database> featurecounts        feature -> location count map

`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 {
			checkError(fmt.Errorf("a database is needed"))
		}
		dbFile := sanitizeDBName(args[0])

		mode := ""
		if len(args) > 1 {
			mode = args[1]
		}

		scope := db.MetadataOnly
		switch mode {
		case "", "targets", "target", "tgt", "ref", "reference", "references", "seq", "sequence", "sequences":
		default:
			scope = db.Everything
		}

		database, err := db.ReadFromFile(dbFile, scope)
		checkError(err)

		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()

		switch mode {
		case "":
			printStaticProperties(w, database)
		case "targets", "target", "tgt", "ref", "reference", "references", "seq", "sequence", "sequences":
			printTargets(w, database, args[2:])
		case "statistics", "stat":
			printStaticProperties(w, database)
			printStatistics(w, database)
		case "locations", "loc", "featuremap", "features":
			database.PrintFeatureMap(w)
		case "featurecounts":
			database.PrintFeatureCounts(w)
		default:
			checkError(fmt.Errorf("unknown info mode: %s", mode))
		}
	},
}

func printStaticProperties(w *bufio.Writer, database *db.Database) {
	opt := database.TargetSketcher().Options()
	fmt.Fprintf(w, "database version: %d\n", db.DBVersion)
	fmt.Fprintf(w, "kmerlen: %d\n", opt.K)
	fmt.Fprintf(w, "sketchlen: %d\n", opt.SketchLen)
	fmt.Fprintf(w, "winlen: %d\n", opt.WinLen)
	fmt.Fprintf(w, "winstride: %d\n", opt.WinStride)
	fmt.Fprintf(w, "conversion: %c -> %c\n", opt.ConvOrig, opt.ConvRepl)
	fmt.Fprintf(w, "hash seed: %d\n", opt.Seed)
	fmt.Fprintf(w, "max locations per feature: %d\n", database.MaxLocationsPerFeature())
	fmt.Fprintf(w, "max load factor: %g\n", database.MaxLoadFactor())
	fmt.Fprintf(w, "targets: %d\n", database.TargetCount())
}

func printTargets(w *bufio.Writer, database *db.Database, names []string) {
	show := func(id db.TargetID) {
		t := database.GetTarget(id)
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
			id, t.Name, t.Source.Filename, t.Source.Index, t.Source.Windows)
	}

	fmt.Fprintln(w, "id\tname\tfile\trecord\twindows")
	if len(names) == 0 {
		for id := uint64(0); id < database.TargetCount(); id++ {
			show(db.TargetID(id))
		}
		return
	}
	for _, name := range names {
		id := database.TargetWithName(name)
		if id == db.NullTarget {
			id = database.TargetWithSimilarName(name)
		}
		if id == db.NullTarget {
			log.Warningf("target not found: %s", name)
			continue
		}
		show(id)
	}
}

func printStatistics(w *bufio.Writer, database *db.Database) {
	fmt.Fprintf(w, "buckets: %d\n", database.BucketCount())
	fmt.Fprintf(w, "features: %d\n", database.FeatureCount())
	fmt.Fprintf(w, "dead features: %d\n", database.DeadFeatureCount())
	fmt.Fprintf(w, "locations: %d\n", database.LocationCount())

	s := database.LocationListSizeStatistics()
	fmt.Fprintf(w, "location list size: mean %.3f, sd %.3f, min %d, max %d\n",
		s.Mean, s.StdDev, s.Min, s.Max)
}

func init() {
	RootCmd.AddCommand(infoCmd)

	infoCmd.SetUsageTemplate(usageTemplate("<database> [targets [<name>...] | statistics | locations | featurecounts]"))
}
