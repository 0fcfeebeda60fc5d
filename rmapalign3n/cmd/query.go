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
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muellan/rmapalign3n/rmapalign3n/align"
	"github.com/muellan/rmapalign3n/rmapalign3n/candidates"
	"github.com/muellan/rmapalign3n/rmapalign3n/db"
	"github.com/muellan/rmapalign3n/rmapalign3n/sketch"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"
)

// pairing modes
const (
	pairingNone = iota
	pairingFiles
	pairingSequences
)

// queryOptions bundle the per-batch query settings; in interactive
// mode pairing and insert size can change between batches.
type queryOptions struct {
	hitsMin    uint64
	hitsCutoff float64
	covMin     float64
	maxCand    int

	alignEnabled bool
	maxEdit      int

	pairing    int
	insertSize int

	batchSize  int
	queryLimit int
	threads    int

	separator     string
	comment       string
	showMapping   bool
	showUnmapped  bool
	showQueryIDs  bool
	showTgtIDs    bool
	showTgtNames  bool
	showAllHits   bool
	showLocations bool
	showErrors    bool

	samOut io.Writer // nil if SAM output is off
}

// queryResult carries one classified query (or read pair) to the
// output goroutine.
type queryResult struct {
	num  uint64
	id   []byte
	seq  []byte
	seq2 []byte

	cands []candidates.Candidate     // kept candidates, best first
	aln   map[db.TargetID]align.Result // alignments, if enabled
}

var poolQueryResult = &sync.Pool{New: func() interface{} {
	return &queryResult{
		id:  make([]byte, 0, 128),
		seq: make([]byte, 0, 1<<10),
	}
}}

func (q *queryResult) reset() {
	q.id = q.id[:0]
	q.seq = q.seq[:0]
	q.seq2 = q.seq2[:0]
	q.cands = q.cands[:0]
	q.aln = nil
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Map reads against a database",
	Long: `Map reads against a database

Usage:
  rmapalign3n query <database> [<sequence file/directory>...] [flags]

Input:
  FASTA or FASTQ files (short reads, long reads, ...) that shall be
  mapped. If directory names are given, they are searched for sequence
  files (at most 10 levels deep). If no input files are given, the
  interactive query mode is started: the database stays in memory and
  each line read from stdin is processed as one query batch, e.g.

      reads1.fa reads2.fa -pairfiles -insertsize 400
      reads3.fa -pairseq

Output:
  The default mapping output format is
      read_header | target_name
  with the separator changeable via --separator. SAM output is
  available with --sam (instead of the default output) or
  --with-sam-out <file> (in addition to it).

Classification:
  For each query the sorted match locations are scanned for the
  best contiguous window range per target. Candidates with fewer than
  --hitmin hits, fewer hits than --hit-cutoff times the top candidate,
  or a hit coverage below --cov-min are discarded.
  Values > 1 for --hit-cutoff and --cov-min are interpreted as
  percentages.

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

		if len(args) < 1 {
			checkError(fmt.Errorf("a database is needed"))
		}
		dbFile := sanitizeDBName(args[0])

		// ---------------------------------------------------------------
		// flags

		qopt := &queryOptions{
			hitsMin:    uint64(getFlagNonNegativeInt(cmd, "hitmin")),
			hitsCutoff: getFlagNonNegativeFloat64(cmd, "hit-cutoff"),
			covMin:     getFlagNonNegativeFloat64(cmd, "cov-min"),
			maxCand:    getFlagInt(cmd, "maxcand"),

			alignEnabled: getFlagBool(cmd, "align"),
			maxEdit:      getFlagInt(cmd, "max-edit"),

			insertSize: getFlagNonNegativeInt(cmd, "insertsize"),

			batchSize:  getFlagPositiveInt(cmd, "batch-size"),
			queryLimit: getFlagNonNegativeInt(cmd, "query-limit"),
			threads:    opt.NumCPUs,

			separator:     getFlagString(cmd, "separator"),
			comment:       getFlagString(cmd, "comment"),
			showMapping:   true,
			showUnmapped:  !getFlagBool(cmd, "mapped-only"),
			showQueryIDs:  getFlagBool(cmd, "queryids"),
			showTgtIDs:    getFlagBool(cmd, "tgtids") || getFlagBool(cmd, "tgtids-only"),
			showTgtNames:  !getFlagBool(cmd, "tgtids-only"),
			showAllHits:   getFlagBool(cmd, "allhits"),
			showLocations: getFlagBool(cmd, "locations"),
			showErrors:    !getFlagBool(cmd, "no-err"),
		}
		if getFlagBool(cmd, "pairfiles") {
			qopt.pairing = pairingFiles
		} else if getFlagBool(cmd, "pairseq") {
			qopt.pairing = pairingSequences
		}
		if cmd.Flags().Changed("max-edit") {
			qopt.alignEnabled = true
		}

		// numbers > 1 are interpreted as percentages
		if qopt.covMin > 1 {
			qopt.covMin *= 0.01
		}
		if qopt.hitsCutoff > 1 {
			qopt.hitsCutoff *= 0.01
		}

		samMode := getFlagBool(cmd, "sam")
		samFile := getFlagString(cmd, "with-sam-out")
		outFile := getFlagString(cmd, "out")
		if outFile == "" {
			outFile = "-"
		}
		if samMode {
			qopt.showMapping = false
		}

		noSummary := getFlagBool(cmd, "no-summary") || samMode
		noQueryParams := getFlagBool(cmd, "no-query-params") || samMode

		// ---------------------------------------------------------------
		// loading the database

		if outputLog {
			log.Infof("rmapalign3n v%s", VERSION)
			log.Info()
			log.Infof("loading database: %s", dbFile)
		}

		database, err := db.ReadFromFile(dbFile, db.Everything)
		checkError(err)

		if outputLog {
			log.Infof("database loaded in %s: %d targets, %d features",
				time.Since(timeStart), database.TargetCount(), database.FeatureCount())
		}

		// database modification flags, applied to the loaded map
		if cmd.Flags().Changed("max-locations-per-feature") {
			if n := getFlagInt(cmd, "max-locations-per-feature"); n > 0 {
				database.SetMaxLocationsPerFeature(n)
			}
		}
		if getFlagBool(cmd, "remove-overpopulated-features") {
			// buckets never exceed the limit, so the features that reached
			// it are those with more than limit-1 locations
			n := database.RemoveFeaturesWithMoreLocationsThan(database.MaxLocationsPerFeature() - 1)
			if outputLog {
				log.Infof("removed %d overpopulated features", n)
			}
		}
		if maxAmbig := getFlagInt(cmd, "max-ambig-per-feature"); maxAmbig > 0 {
			n := database.RemoveAmbiguousFeatures(maxAmbig)
			if outputLog {
				log.Infof("removed %d ambiguous features", n)
			}
		}

		needSAM := samMode || samFile != ""
		if qopt.alignEnabled || needSAM {
			if outputLog {
				log.Info("re-reading target sequences ...")
			}
			checkError(database.RereadTargets())
		}

		// ---------------------------------------------------------------
		// output streams

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		if samMode {
			qopt.samOut = outfh
		} else if samFile != "" {
			samfh, sgw, sw, err := outStream(samFile, strings.HasSuffix(samFile, ".gz"), opt.CompressionLevel)
			checkError(err)
			defer func() {
				samfh.Flush()
				if sgw != nil {
					sgw.Close()
				}
				sw.Close()
			}()
			qopt.samOut = samfh
		}
		if qopt.samOut != nil {
			checkError(database.SAMHeader(qopt.samOut, VERSION))
		}

		if qopt.showMapping && !noQueryParams {
			showQueryParams(outfh, database, qopt)
		}

		// ---------------------------------------------------------------
		// mapping

		files := expandFileList(args[1:], opt.NumCPUs)

		var total, matched uint64
		if len(files) > 0 {
			total, matched = runQueryBatch(database, files, qopt, outfh)
		} else {
			// interactive query mode: one batch per input line
			if outputLog {
				log.Info("interactive query mode, one batch per line (Ctrl-D to quit)")
			}
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				batchFiles, perBatch := parseInteractiveLine(line, *qopt)
				batchFiles = expandFileList(batchFiles, opt.NumCPUs)
				if len(batchFiles) == 0 {
					continue
				}
				t, m := runQueryBatch(database, batchFiles, &perBatch, outfh)
				total += t
				matched += m
				outfh.Flush()
			}
			checkError(scanner.Err())
		}

		// ---------------------------------------------------------------
		// summary

		if qopt.showMapping && !noSummary {
			fmt.Fprintf(outfh, "%s queries: %d\n", qopt.comment, total)
			if total > 0 {
				fmt.Fprintf(outfh, "%s matched: %d (%.2f%%)\n",
					qopt.comment, matched, float64(matched)/float64(total)*100)
			}
		}
		if outputLog {
			log.Info()
			log.Infof("processed queries: %d", total)
			if total > 0 {
				log.Infof("%.2f%% (%d/%d) queries matched",
					float64(matched)/float64(total)*100, matched, total)
			}
			if outFile != "-" {
				log.Infof("mapping results saved to: %s", outFile)
			}
		}
	},
}

// parseInteractiveLine splits an interactive batch line into files and
// per-batch pairing options.
func parseInteractiveLine(line string, base queryOptions) ([]string, queryOptions) {
	opts := base
	opts.pairing = pairingNone
	fields := strings.Fields(line)
	files := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		f := strings.TrimLeft(fields[i], "-")
		switch f {
		case "pairfiles", "pair-files", "paired-files":
			opts.pairing = pairingFiles
		case "pairseq", "pair-seq", "paired-seq":
			opts.pairing = pairingSequences
		case "insertsize", "insert-size":
			if i+1 < len(fields) {
				n, err := strconv.Atoi(fields[i+1])
				if err == nil {
					opts.insertSize = n
				}
				i++
			}
		default:
			if strings.HasPrefix(fields[i], "-") {
				log.Warningf("unknown option in interactive mode: %s", fields[i])
				continue
			}
			files = append(files, fields[i])
		}
	}
	return files, opts
}

// showQueryParams prints the query settings as comment lines.
func showQueryParams(w io.Writer, database *db.Database, opt *queryOptions) {
	sopt := database.TargetSketcher().Options()
	fmt.Fprintf(w, "%s rmapalign3n v%s\n", opt.comment, VERSION)
	fmt.Fprintf(w, "%s kmerlen: %d, sketchlen: %d, winlen: %d, winstride: %d\n",
		opt.comment, sopt.K, sopt.SketchLen, sopt.WinLen, sopt.WinStride)
	fmt.Fprintf(w, "%s conversion: %c -> %c\n", opt.comment, sopt.ConvOrig, sopt.ConvRepl)
	fmt.Fprintf(w, "%s hitmin: %d, hit-cutoff: %g, cov-min: %g, maxcand: %d\n",
		opt.comment, opt.hitsMin, opt.hitsCutoff, opt.covMin, opt.maxCand)
}

// runQueryBatch maps all queries of the given files and returns
// (total, matched) counts.
func runQueryBatch(database *db.Database, files []string, opt *queryOptions, outfh *bufio.Writer) (uint64, uint64) {
	var total, matched uint64

	// single output goroutine serializes the output; results are
	// written in completion order, which with several threads may
	// differ from the input order
	ch := make(chan *queryResult, opt.batchSize)
	done := make(chan int)
	go func() {
		for r := range ch {
			total++
			r.num = total
			if len(r.cands) > 0 {
				matched++
			}
			printQueryResult(outfh, database, opt, r)
			poolQueryResult.Put(r)
		}
		done <- 1
	}()

	var wg sync.WaitGroup
	tokens := make(chan int, opt.threads)

	process := func(q *queryResult) {
		tokens <- 1
		wg.Add(1)
		go func() {
			defer func() {
				<-tokens
				wg.Done()
			}()
			classifyQuery(database, opt, q)
			ch <- q
		}()
	}

	if opt.pairing == pairingFiles && len(files) > 1 {
		// consecutive files are read in lockstep; filename order
		// defines the pairing
		sort.Strings(files)
		for i := 0; i+1 < len(files); i += 2 {
			readPairedFiles(files[i], files[i+1], opt, process)
		}
		if len(files)%2 == 1 {
			log.Warningf("odd file left unpaired: %s", files[len(files)-1])
			readSingleFile(files[len(files)-1], opt, false, process)
		}
	} else {
		paired := opt.pairing == pairingSequences
		for _, file := range files {
			readSingleFile(file, opt, paired, process)
		}
	}

	wg.Wait()
	close(ch)
	<-done

	return total, matched
}

func newQueryRecord(id, s []byte) *queryResult {
	q := poolQueryResult.Get().(*queryResult)
	q.reset()
	q.id = append(q.id, id...)
	q.seq = append(q.seq, bytes.ToUpper(s)...)
	return q
}

// readSingleFile reads queries (optionally two consecutive records as
// a pair) and hands them to process.
func readSingleFile(file string, opt *queryOptions, pairSeq bool, process func(*queryResult)) {
	reader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		if opt.showErrors {
			log.Warningf("failed to open %s: %s", file, err)
		}
		return
	}
	defer reader.Close()

	var n int
	var pending *queryResult
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			if opt.showErrors {
				log.Warningf("reading %s: %s", file, err)
			}
			break
		}

		if pairSeq {
			if pending == nil {
				pending = newQueryRecord(record.ID, record.Seq.Seq)
				continue
			}
			pending.seq2 = append(pending.seq2, bytes.ToUpper(record.Seq.Seq)...)
			process(pending)
			pending = nil
		} else {
			process(newQueryRecord(record.ID, record.Seq.Seq))
		}

		n++
		if opt.queryLimit > 0 && n >= opt.queryLimit {
			break
		}
	}
	if pending != nil {
		process(pending)
	}
}

// readPairedFiles reads the nth records of two files as one read pair.
func readPairedFiles(file1, file2 string, opt *queryOptions, process func(*queryResult)) {
	reader1, err := fastx.NewReader(nil, file1, "")
	if err != nil {
		if opt.showErrors {
			log.Warningf("failed to open %s: %s", file1, err)
		}
		return
	}
	defer reader1.Close()
	reader2, err := fastx.NewReader(nil, file2, "")
	if err != nil {
		if opt.showErrors {
			log.Warningf("failed to open %s: %s", file2, err)
		}
		return
	}
	defer reader2.Close()

	var n int
	for {
		record1, err1 := reader1.Read()
		record2, err2 := reader2.Read()
		if err1 != nil || err2 != nil {
			if (err1 != nil && err1 != io.EOF) || (err2 != nil && err2 != io.EOF) {
				if opt.showErrors {
					log.Warningf("reading %s / %s: %v %v", file1, file2, err1, err2)
				}
			}
			break
		}

		q := newQueryRecord(record1.ID, record1.Seq.Seq)
		q.seq2 = append(q.seq2, bytes.ToUpper(record2.Seq.Seq)...)
		process(q)

		n++
		if opt.queryLimit > 0 && n >= opt.queryLimit {
			break
		}
	}
}

var poolMatchSorter = &sync.Pool{New: func() interface{} {
	return db.NewMatchSorter()
}}

// classifyQuery gathers and merges the matches of one query (or read
// pair), generates candidates and applies the classification filters.
func classifyQuery(database *db.Database, opt *queryOptions, q *queryResult) {
	ms := poolMatchSorter.Get().(*db.MatchSorter)
	defer poolMatchSorter.Put(ms)
	ms.Clear()

	database.AccumulateMatches(q.seq, ms)
	if len(q.seq2) > 0 {
		database.AccumulateMatches(q.seq2, ms)
	}
	if ms.Empty() {
		return
	}
	ms.Sort()

	// the window range has to cover the whole read (pair)
	stride := database.TargetSketcher().WindowStride()
	span := len(q.seq) + len(q.seq2)
	if opt.insertSize > span {
		span = opt.insertSize
	}
	rules := candidates.Rules{
		MaxWindowsInRange: db.WindowID(2 + span/stride),
		MaxCandidates:     opt.maxCand,
	}

	best := candidates.CollectBest(ms.Locations(), rules)
	if best.Empty() {
		return
	}

	top := best.Candidates()[0].Hits
	for _, c := range best.Candidates() {
		if c.Hits < opt.hitsMin {
			continue
		}
		if opt.hitsCutoff > 0 && float64(c.Hits) < opt.hitsCutoff*float64(top) {
			continue
		}
		if opt.covMin > 0 &&
			float64(c.Hits)/float64(c.Pos.Size()) < opt.covMin {
			continue
		}
		q.cands = append(q.cands, c)
	}

	if opt.alignEnabled && len(q.cands) > 0 {
		alignCandidates(database, opt, q)
	}
}

// alignCandidates verifies the kept candidates with a semi-global
// edit-distance alignment against the candidate regions and drops the
// ones exceeding the maximum edit distance.
func alignCandidates(database *db.Database, opt *queryOptions, q *queryResult) {
	sopt := database.TargetSketcher().Options()
	conv := func(b byte) byte {
		return sketch.Convert3N(b, sopt.ConvOrig, sopt.ConvRepl)
	}
	stride := database.TargetSketcher().WindowStride()
	winlen := database.TargetSketcher().WindowLen()

	kept := q.cands[:0]
	for _, c := range q.cands {
		t := database.GetTarget(c.Tgt)
		if len(t.Seq) == 0 { // sequence not cached, keep unverified
			kept = append(kept, c)
			continue
		}
		beg := int(c.Pos.Beg) * stride
		end := int(c.Pos.End)*stride + winlen
		if end > len(t.Seq) {
			end = len(t.Seq)
		}
		res, ok := align.SemiGlobal(q.seq, t.Seq[beg:end], opt.maxEdit, conv)
		if !ok {
			continue
		}
		res.TgtBegin += beg
		res.TgtEnd += beg
		if q.aln == nil {
			q.aln = make(map[db.TargetID]align.Result, len(q.cands))
		}
		q.aln[c.Tgt] = res
		kept = append(kept, c)
	}
	q.cands = kept
}

// printQueryResult writes the default mapping line and/or the SAM
// record of one query.
func printQueryResult(outfh *bufio.Writer, database *db.Database, opt *queryOptions, q *queryResult) {
	if opt.showMapping {
		printMappingLine(outfh, database, opt, q)
	}
	if opt.samOut != nil {
		printSAMRecord(opt.samOut, database, opt, q)
	}
}

func printMappingLine(outfh *bufio.Writer, database *db.Database, opt *queryOptions, q *queryResult) {
	if len(q.cands) == 0 {
		if opt.showUnmapped {
			if opt.showQueryIDs {
				fmt.Fprintf(outfh, "%d%s", q.num, opt.separator)
			}
			fmt.Fprintf(outfh, "%s%s--\n", q.id, opt.separator)
		}
		return
	}
	if opt.showQueryIDs {
		fmt.Fprintf(outfh, "%d%s", q.num, opt.separator)
	}

	cands := q.cands
	if !opt.showAllHits {
		cands = cands[:1]
	}

	fmt.Fprintf(outfh, "%s%s", q.id, opt.separator)
	for i, c := range cands {
		if i > 0 {
			outfh.WriteString(",")
		}
		t := database.GetTarget(c.Tgt)
		if opt.showTgtNames {
			outfh.WriteString(t.Name)
		}
		if opt.showTgtIDs {
			if opt.showTgtNames {
				fmt.Fprintf(outfh, "(%d)", c.Tgt)
			} else {
				fmt.Fprintf(outfh, "%d", c.Tgt)
			}
		}
		if opt.showAllHits {
			fmt.Fprintf(outfh, ":%d", c.Hits)
		}
		if opt.showLocations {
			fmt.Fprintf(outfh, "[%d-%d]", c.Pos.Beg, c.Pos.End)
		}
	}
	outfh.WriteByte('\n')
}

func printSAMRecord(w io.Writer, database *db.Database, opt *queryOptions, q *queryResult) {
	qname := string(q.id)
	if len(q.cands) == 0 {
		fmt.Fprintf(w, "%s\t4\t*\t0\t0\t*\t*\t0\t0\t%s\t*\n", qname, q.seq)
		return
	}

	c := q.cands[0]
	t := database.GetTarget(c.Tgt)
	stride := database.TargetSketcher().WindowStride()

	pos := int(c.Pos.Beg)*stride + 1
	cigar := fmt.Sprintf("%dM", len(q.seq))
	if res, ok := q.aln[c.Tgt]; ok {
		pos = res.TgtBegin + 1
		cigar = res.CIGAR
	}
	fmt.Fprintf(w, "%s\t0\t%s\t%d\t255\t%s\t*\t0\t0\t%s\t*\n",
		qname, t.Name, pos, cigar, q.seq)
}

func init() {
	RootCmd.AddCommand(queryCmd)

	// -----------------------------  output  -----------------------------

	queryCmd.Flags().StringP("out", "o", "-",
		formatFlagUsage(`Output file, supports a ".gz" suffix ("-" for stdout).`))

	queryCmd.Flags().BoolP("sam", "", false,
		formatFlagUsage(`Generate output in SAM format instead of the default mapping format.`))

	queryCmd.Flags().StringP("with-sam-out", "", "",
		formatFlagUsage(`Generate SAM output in addition to the default mapping output, redirected to the given file.`))

	// -----------------------------  classification  -----------------------------

	queryCmd.Flags().IntP("hitmin", "", 0,
		formatFlagUsage(`Discard candidates with fewer hits.`))

	queryCmd.Flags().IntP("maxcand", "", 2,
		formatFlagUsage(`Maximum number of candidates to consider, before filtering (<=0 for all).`))

	queryCmd.Flags().Float64P("hit-cutoff", "", 0,
		formatFlagUsage(`Discard candidates with fewer hits relative to the top candidate; values > 1 are interpreted as percentages.`))

	queryCmd.Flags().Float64P("cov-min", "", 0,
		formatFlagUsage(`Discard candidates whose hit coverage of the window range is lower; values > 1 are interpreted as percentages.`))

	queryCmd.Flags().BoolP("align", "", false,
		formatFlagUsage(`Enable the post-mapping alignment step and filter candidates accordingly. Alignments are only shown in SAM output.`))

	queryCmd.Flags().IntP("max-edit", "", -1,
		formatFlagUsage(`Maximum allowed edit distance of alignments (enables --align). -1 = unlimited.`))

	// -----------------------------  pairing  -----------------------------

	queryCmd.Flags().BoolP("pairfiles", "", false,
		formatFlagUsage(`Interleave paired-end reads from two consecutive files, so that the nth read from file m and the nth read from file m+1 are treated as a pair.`))

	queryCmd.Flags().BoolP("pairseq", "", false,
		formatFlagUsage(`Two consecutive sequences (1+2, 3+4, ...) from each file are treated as paired-end reads.`))

	queryCmd.Flags().IntP("insertsize", "", 0,
		formatFlagUsage(`Maximum insert size to consider (0: sum of the lengths of the individual reads).`))

	// -----------------------------  performance  -----------------------------

	queryCmd.Flags().IntP("batch-size", "", 4096,
		formatFlagUsage(`Number of mapped queries buffered for output. At most --threads queries are mapped at once.`))

	queryCmd.Flags().IntP("query-limit", "", 0,
		formatFlagUsage(`Map at most that many queries per input file (0: no limit).`))

	// -----------------------------  formatting  -----------------------------

	queryCmd.Flags().StringP("separator", "", "\t|\t",
		formatFlagUsage(`String that separates output columns.`))

	queryCmd.Flags().StringP("comment", "", "#",
		formatFlagUsage(`String that precedes comment (non-mapping) lines.`))

	queryCmd.Flags().BoolP("mapped-only", "", false,
		formatFlagUsage(`Do not list unmapped reads.`))

	queryCmd.Flags().BoolP("queryids", "", false,
		formatFlagUsage(`Show a unique id for each query.`))

	queryCmd.Flags().BoolP("tgtids", "", false,
		formatFlagUsage(`Print target ids in addition to target names.`))

	queryCmd.Flags().BoolP("tgtids-only", "", false,
		formatFlagUsage(`Print target ids instead of target names.`))

	queryCmd.Flags().BoolP("no-summary", "", false,
		formatFlagUsage(`Do not show the result summary at the end of the mapping output.`))

	queryCmd.Flags().BoolP("no-query-params", "", false,
		formatFlagUsage(`Do not show query settings at the beginning of the mapping output.`))

	queryCmd.Flags().BoolP("no-err", "", false,
		formatFlagUsage(`Suppress per-record error messages.`))

	// -----------------------------  analysis  -----------------------------

	queryCmd.Flags().BoolP("allhits", "", false,
		formatFlagUsage(`For each query, print all candidates with their hit counts.`))

	queryCmd.Flags().BoolP("locations", "", false,
		formatFlagUsage(`Show window ranges in candidate targets.`))

	// -----------------------------  database modification  -----------------------------

	queryCmd.Flags().IntP("max-locations-per-feature", "", -1,
		formatFlagUsage(`Maximum number of reference sequence locations per feature; lowering it truncates the loaded feature map.`))

	queryCmd.Flags().BoolP("remove-overpopulated-features", "", false,
		formatFlagUsage(`Remove all features that have reached the maximum allowed amount of locations per feature.`))

	queryCmd.Flags().IntP("max-ambig-per-feature", "", 0,
		formatFlagUsage(`Maximum number of allowed different targets per feature; features exceeding the limit are removed (0 for off).`))

	queryCmd.SetUsageTemplate(usageTemplate("<database> [<sequence file/directory>...] [flags]"))
}
