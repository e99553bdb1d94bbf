package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nmr-annotator/internal/qa"
)

var (
	qaURL     string
	askTopK   int
	askSearch bool
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Ask the document QA service a question",
	Long: `Sends the question to the configured QA service and prints the answer
with the document chunks it was drawn from. With --search only the
ranked chunks are printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List documents indexed by the QA service",
	Args:  cobra.NoArgs,
	RunE:  runUploads,
}

func init() {
	for _, c := range []*cobra.Command{askCmd, uploadsCmd} {
		c.Flags().StringVar(&qaURL, "url", "", "QA service base URL (default from config)")
	}
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askSearch, "search", false, "Only search, do not ask for an answer")
}

func qaClient() *qa.Client {
	url := qaURL
	if url == "" {
		url = cfg.QA.BaseURL
	}
	return qa.NewClient(url, cfg.QA.Timeout, cfg.QA.TopK, logger.Named("qa"))
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	client := qaClient()
	out := cmd.OutOrStdout()

	if askSearch {
		res, err := client.Search(cmd.Context(), question, askTopK)
		if err != nil {
			return err
		}
		t := newTable(fmt.Sprintf("%q (k=%d)", res.Q, res.K), "file", "chunk", "score", "text")
		for _, r := range res.Results {
			t.add(r.StoredFilename, strconv.Itoa(r.ChunkID), strconv.FormatFloat(r.Score, 'f', 3, 64), oneLine(r.Text, 80))
		}
		return t.write(out)
	}

	res, err := client.Ask(cmd.Context(), question, askTopK)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n%s\n\n", titleStyle.Render("Answer"), res.Answer)
	if len(res.Contexts) == 0 {
		return nil
	}
	t := newTable("Sources", "file", "chunk", "score", "snippet")
	for _, c := range res.Contexts {
		t.add(c.StoredFilename, strconv.Itoa(c.ChunkID), strconv.FormatFloat(c.Score, 'f', 3, 64), oneLine(c.Snippet, 80))
	}
	return t.write(out)
}

func runUploads(cmd *cobra.Command, args []string) error {
	list, err := qaClient().Uploads(cmd.Context())
	if err != nil {
		return err
	}
	t := newTable(fmt.Sprintf("%d documents", list.Count), "file", "bytes")
	for _, u := range list.Items {
		t.add(u.StoredFilename, strconv.FormatInt(u.Bytes, 10))
	}
	return t.write(cmd.OutOrStdout())
}

// oneLine collapses whitespace and truncates to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
