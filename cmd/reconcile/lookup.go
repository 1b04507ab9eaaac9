package main

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/reconcile/pkg/reconcile/store"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]+$`)

var lookupCmd = &cobra.Command{
	Use:   "lookup DIGEST",
	Short: "Find cataloged files by content digest",
	Long: `Look up the cataloged files carrying a SHA-256 digest.

The digest may be abbreviated to a unique hex prefix of at least four
characters. Both trees are searched.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	digest, err := normalizeDigestArg(args[0])
	if err != nil {
		return err
	}

	st, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer func() { _ = st.Close() }()

	records, err := st.LookupByHash(digest)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	if len(records) == 0 {
		printInfo("no cataloged file carries %s", digest)
		return nil
	}

	// An abbreviated digest must name exactly one content.
	distinct := distinctDigests(records)
	if len(distinct) > 1 {
		return fmt.Errorf("digest prefix %s is ambiguous, matches %s", digest, strings.Join(distinct, ", "))
	}

	printInfo("%s", records[0].Digest)
	for i := range records {
		printInfo("  %-10s %s:%s", records[i].HumanSize(), records[i].Tree, records[i].Path)
	}
	return nil
}

// normalizeDigestArg validates a digest argument: lowercase hex, at least
// four characters, at most a full SHA-256.
func normalizeDigestArg(arg string) (string, error) {
	digest := strings.ToLower(strings.TrimSpace(arg))
	switch {
	case len(digest) < 4:
		return "", fmt.Errorf("digest prefix too short: need at least 4 hex characters")
	case len(digest) > 64:
		return "", fmt.Errorf("digest too long: %d characters", len(digest))
	case !hexPattern.MatchString(digest):
		return "", fmt.Errorf("digest is not hex: %q", arg)
	}
	return digest, nil
}

// distinctDigests lists the unique digests among records, abbreviated for
// display and sorted.
func distinctDigests(records []types.FileRecord) []string {
	seen := make(map[string]bool)
	var digests []string
	for _, rec := range records {
		short := rec.Digest
		if len(short) > 12 {
			short = short[:12]
		}
		if !seen[short] {
			seen[short] = true
			digests = append(digests, short)
		}
	}
	sort.Strings(digests)
	return digests
}
