package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/client"
)

const usage = `usage: expensetracker-cli [-url URL] [-email EMAIL] [-password PASSWORD] <command> [flags]

commands:
  summary          current month overview
  expenses         list expenses (-category, -from, -to, -payment)
  add-expense      add an expense (-amount, -category, -description, -date, -payment, -card)
  cards            list cards
  notifications    list notifications (-read-all marks them read)
  export           download the CSV export (-o FILE, same filters as expenses)

environment: EXPENSETRACKER_URL, EXPENSETRACKER_EMAIL, EXPENSETRACKER_PASSWORD
`

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("expensetracker-cli", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }
	baseURL := fs.String("url", envOr("EXPENSETRACKER_URL", "http://localhost:8081"), "server URL")
	email := fs.String("email", os.Getenv("EXPENSETRACKER_EMAIL"), "account email")
	password := fs.String("password", os.Getenv("EXPENSETRACKER_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	if *email == "" || *password == "" {
		return errors.New("email and password are required")
	}

	c, err := client.New(*baseURL)
	if err != nil {
		return err
	}
	if _, err := c.Login(ctx, *email, *password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "summary":
		return summary(ctx, c, out)
	case "expenses":
		return listExpenses(ctx, c, rest, out)
	case "add-expense":
		return addExpense(ctx, c, rest, out)
	case "cards":
		return listCards(ctx, c, out)
	case "notifications":
		return notifications(ctx, c, rest, out)
	case "export":
		return export(ctx, c, rest, out)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func filterFlags(fs *flag.FlagSet) *client.ExpenseFilter {
	f := &client.ExpenseFilter{}
	fs.StringVar(&f.Category, "category", "", "category")
	fs.StringVar(&f.StartDate, "from", "", "start date YYYY-MM-DD")
	fs.StringVar(&f.EndDate, "to", "", "end date YYYY-MM-DD")
	fs.StringVar(&f.PaymentMethod, "payment", "", "cash or card")
	fs.Int64Var(&f.CardID, "card", 0, "card id")
	return f
}

func summary(ctx context.Context, c *client.Client, out io.Writer) error {
	s, err := c.Summary(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Month\t%s\n", s.CurrentMonth)
	fmt.Fprintf(tw, "Salary\t%.2f\n", s.MonthlySalary)
	fmt.Fprintf(tw, "Spent\t%.2f (%.1f%%)\n", s.TotalExpenses, s.SpentPercent)
	fmt.Fprintf(tw, "Remaining\t%.2f\n", s.RemainingBalance)
	fmt.Fprintf(tw, "Card balance\t%.2f\n", s.TotalBalance)
	fmt.Fprintf(tw, "Transactions\t%d\n", s.TransactionCount)
	fmt.Fprintf(tw, "Unread\t%d\n", s.UnreadCount)
	for _, ct := range s.CategoryBreakdown {
		fmt.Fprintf(tw, "  %s\t%.2f\t%d\n", ct.Category, ct.Total, ct.Count)
	}
	return tw.Flush()
}

func listExpenses(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("expenses", flag.ContinueOnError)
	fs.SetOutput(out)
	f := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	expenses, err := c.ListExpenses(ctx, *f)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tDESCRIPTION\tAMOUNT\tPAYMENT")
	var total float64
	for _, e := range expenses {
		payment := e.PaymentMethod
		if e.CardName != "" {
			payment += " (" + e.CardName + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%s\n", e.ID, e.ExpenseDate, e.Category, e.Description, e.Amount, payment)
		total += e.Amount
	}
	fmt.Fprintf(tw, "\t\t\tTotal\t%.2f\t\n", total)
	return tw.Flush()
}

func addExpense(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add-expense", flag.ContinueOnError)
	fs.SetOutput(out)
	var e client.NewExpense
	fs.Float64Var(&e.Amount, "amount", 0, "amount")
	fs.StringVar(&e.Category, "category", "", "category")
	fs.StringVar(&e.Description, "description", "", "description")
	fs.StringVar(&e.ExpenseDate, "date", time.Now().Format("2006-01-02"), "date YYYY-MM-DD")
	fs.StringVar(&e.PaymentMethod, "payment", "", "cash or card")
	fs.Int64Var(&e.CardID, "card", 0, "card id for card payments")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := c.CreateExpense(ctx, e)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Expense %d added: %.2f %s\n", created.ID, created.Amount, created.Category)
	return nil
}

func listCards(ctx context.Context, c *client.Client, out io.Writer) error {
	cards, err := c.ListCards(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNUMBER\tEXPIRY\tBALANCE")
	for _, card := range cards {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\n", card.ID, card.CardName, card.CardNumber, card.ExpiryDate, card.Balance)
	}
	return tw.Flush()
}

func notifications(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	fs.SetOutput(out)
	readAll := fs.Bool("read-all", false, "mark every notification read")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *readAll {
		n, err := c.MarkAllNotificationsRead(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d notifications marked as read\n", n)
		return nil
	}

	items, unread, err := c.Notifications(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d unread\n", unread)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, n := range items {
		mark := " "
		if !n.IsRead {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Type, n.Message)
	}
	return tw.Flush()
}

func export(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(out)
	f := filterFlags(fs)
	path := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *path == "" {
		_, err := c.ExportCSV(ctx, *f, out)
		return err
	}

	file, err := os.Create(*path)
	if err != nil {
		return fmt.Errorf("create %s: %w", *path, err)
	}
	n, err := c.ExportCSV(ctx, *f, file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d bytes to %s\n", n, *path)
	return nil
}
