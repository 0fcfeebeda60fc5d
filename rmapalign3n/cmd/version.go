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
	"fmt"

	"github.com/muellan/rmapalign3n/rmapalign3n/multimap"
	"github.com/spf13/cobra"
)

// VERSION of rmapalign3n
const VERSION = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information and the compiled integer widths",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rmapalign3n v%s\n", VERSION)
		fmt.Println()
		fmt.Printf("feature width:        %d bits\n", multimap.FeatureBits)
		fmt.Printf("target id width:      %d bits\n", multimap.TargetIDBits)
		fmt.Printf("window id width:      %d bits\n", multimap.WindowIDBits)
		fmt.Printf("bucket size width:    %d bits\n", multimap.BucketSizeBits)
		fmt.Printf("max locations/feature: %d\n", multimap.MaxSupportedLocationsPerFeature)
		fmt.Printf("max targets:          %d\n", multimap.MaxTargetCount)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
