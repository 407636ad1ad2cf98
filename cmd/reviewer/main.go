package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	"unireview/internal/client"
	"unireview/internal/models"
	"unireview/internal/tokenstore"
)

// Reviewer device CLI. All token state lives in a local wallet file;
// the server only ever sees blinded messages and sealed payloads.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "status":
		err = runStatus(os.Args[2:])
	case "claim":
		err = runClaim(os.Args[2:])
	case "tokens":
		err = runTokens(os.Args[2:])
	case "submit":
		err = runSubmit(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: reviewer <command> [flags]

Commands:
  status   Show the current cycle and claim standing
  claim    Claim review tokens for a set of professors (one claim per cycle)
  tokens   List the tokens held in the wallet
  submit   Submit an anonymous review for a professor
  export   Export the token wallet encrypted under a password
  import   Restore tokens from an encrypted wallet export

Environment:
  REVIEWER_API_URL   API base URL (default http://localhost:8080/api/v1)
  REVIEWER_JWT       Session token for status and claim calls
  REVIEWER_WALLET    Wallet file path (default ~/.unireview/wallet.json)`)
}

func newClient() (*client.Client, *tokenstore.Store) {
	baseURL := envOr("REVIEWER_API_URL", "http://localhost:8080/api/v1")
	walletPath := os.Getenv("REVIEWER_WALLET")
	if walletPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		walletPath = filepath.Join(home, ".unireview", "wallet.json")
	}
	store := tokenstore.New(walletPath)
	return client.New(baseURL, os.Getenv("REVIEWER_JWT"), store), store
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, _ := newClient()
	status, err := c.Status()
	if err != nil {
		return err
	}
	fmt.Printf("Cycle:   %s\n", status.CycleID)
	if status.HasClaimed {
		fmt.Println("Claimed: yes (tokens for this cycle are already issued)")
	} else {
		fmt.Println("Claimed: no")
	}
	return nil
}

func runClaim(args []string) error {
	fs := flag.NewFlagSet("claim", flag.ExitOnError)
	profs := fs.String("profs", "", "comma-separated professor ids to claim tokens for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *profs == "" {
		return fmt.Errorf("-profs is required, e.g. -profs 3,17,42")
	}

	var profIDs []int64
	for _, part := range strings.Split(*profs, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid professor id %q", part)
		}
		profIDs = append(profIDs, id)
	}

	c, _ := newClient()
	tokens, err := c.ClaimTokens(profIDs)
	if err != nil {
		return err
	}
	fmt.Printf("Issued %d tokens for cycle %s.\n", len(tokens), tokens[0].CycleID)
	fmt.Println("This was your one claim for the cycle. Export a wallet backup now:")
	fmt.Println("  reviewer export -out wallet.backup")
	return nil
}

func runTokens(args []string) error {
	fs := flag.NewFlagSet("tokens", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store := newClient()
	tokens, err := store.List()
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		fmt.Println("Wallet is empty.")
		return nil
	}
	for _, t := range tokens {
		state := "unspent"
		if t.Used {
			state = "spent"
		}
		fmt.Printf("cycle %s  prof %-6d %s\n", t.CycleID, t.ProfID, state)
	}
	return nil
}

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	prof := fs.Int64("prof", 0, "professor id")
	course := fs.String("course", "", "course code, e.g. CS101")
	semester := fs.String("semester", "", "semester, e.g. WS25")
	reviewType := fs.String("type", "lecture", "review type")
	overall := fs.Int("overall", 0, "overall rating 1-5")
	clarity := fs.Int("clarity", 0, "clarity rating 1-5")
	difficulty := fs.Int("difficulty", 0, "difficulty rating 1-5")
	again := fs.Bool("again", false, "would take again")
	comment := fs.String("comment", "", "free-text comment")
	grade := fs.String("grade", "", "received grade (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prof <= 0 {
		return fmt.Errorf("-prof is required")
	}

	payload := &models.ReviewPayload{
		RatingOverall:    *overall,
		RatingClarity:    *clarity,
		RatingDifficulty: *difficulty,
		WouldTakeAgain:   *again,
		Comment:          *comment,
		Grade:            *grade,
		CourseCode:       *course,
		Semester:         *semester,
		ReviewType:       *reviewType,
	}

	c, _ := newClient()
	if err := c.SubmitReview(*prof, payload); err != nil {
		return err
	}
	fmt.Println("Review accepted. It will appear after the next publication run.")
	return nil
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(password), nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "wallet.backup", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := readPassword("Backup password: ")
	if err != nil {
		return err
	}

	_, store := newClient()
	backup, err := store.Export(password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, backup, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	fmt.Printf("Wallet exported to %s.\n", *out)
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	in := fs.String("in", "wallet.backup", "backup file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backup, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	password, err := readPassword("Backup password: ")
	if err != nil {
		return err
	}

	_, store := newClient()
	if err := store.Import(backup, password); err != nil {
		return err
	}
	fmt.Println("Wallet restored.")
	return nil
}
