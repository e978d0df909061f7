// Command loyalty-console is the operator console for the spa loyalty
// program: find an account by its short code, build an adjustment from
// service line items and/or a bonus spend, submit it atomically, and show
// the server's authoritative result.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/priroda-spa/loyalty-console/internal/client/spa"
	"github.com/priroda-spa/loyalty-console/internal/config"
	"github.com/priroda-spa/loyalty-console/internal/logger"
	"github.com/priroda-spa/loyalty-console/internal/loyalty"
)

const usage = `commands:
  code <CODE>            resolve an account by short code (discards the draft)
  add <price> <name...>  add a service line item (price in rubles)
  rm <index>             remove a service line item
  spend <amount>         set the bonus spend amount (0 clears it)
  reason <text...>       set an explicit reason for the adjustment
  show                   show the account and the current draft
  submit                 submit the adjustment
  new                    back to search, discarding the draft
  help                   show this help
  quit                   exit`

func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger.Init(cfg.Stage)
	defer logger.Sync()

	client := spa.New(cfg.BackendBaseURL, cfg.AdminToken, spa.WithTimeout(cfg.RequestTimeout))
	session := loyalty.NewSession(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	logger.Info("console started", zap.String("backend", cfg.BackendBaseURL))
	fmt.Println("spa loyalty console. Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[%s] > ", session.Phase())
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			fmt.Println(usage)
		case "quit", "exit":
			return
		case "code":
			runResolve(ctx, session, args)
		case "add":
			runAdd(session, args)
		case "rm":
			runRemove(session, args)
		case "spend":
			runSpend(session, args)
		case "reason":
			fail(session.SetReason(strings.Join(args, " ")))
		case "show":
			printDraft(session)
		case "submit":
			runSubmit(ctx, session)
		case "new":
			fail(session.NewSearch())
		default:
			fmt.Printf("unknown command %q, type 'help'\n", cmd)
		}
	}
}

func runResolve(ctx context.Context, session *loyalty.Session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: code <CODE>")
		return
	}
	account, err := session.Resolve(ctx, args[0])
	if err != nil {
		fail(err)
		return
	}
	printAccount(account)
}

func runAdd(session *loyalty.Session, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: add <price> <name...>")
		return
	}
	price, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Printf("price %q is not a number\n", args[0])
		return
	}
	if err := session.AddService(strings.Join(args[1:], " "), price); err != nil {
		fail(err)
		return
	}
	fmt.Printf("draft: %d line(s), award preview %d bonuses\n", len(session.Services()), session.PreviewAward())
}

func runRemove(session *loyalty.Session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: rm <index>")
		return
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("index %q is not a number\n", args[0])
		return
	}
	fail(session.RemoveService(i))
}

func runSpend(session *loyalty.Session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: spend <amount>")
		return
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("amount %q is not a number\n", args[0])
		return
	}
	fail(session.SetSpend(amount))
}

func runSubmit(ctx context.Context, session *loyalty.Session) {
	result, err := session.Submit(ctx)
	if err != nil {
		fail(err)
		return
	}
	if result.BonusesAwarded > 0 {
		fmt.Printf("awarded %d bonuses\n", result.BonusesAwarded)
	}
	if result.BonusesSpent > 0 {
		fmt.Printf("spent %d bonuses\n", result.BonusesSpent)
	}
	fmt.Printf("balance is now %d bonuses\n", result.CurrentBonuses)
	if account := session.Account(); account != nil {
		printAccount(account)
	}
}

func printAccount(a *loyalty.Account) {
	fmt.Printf("%s <%s> code %s: %d bonuses (%d spent lifetime), cashback %d%%\n",
		a.DisplayName(), a.Email, a.UniqueCode, a.Bonuses, a.SpentBonuses, a.EffectiveCashbackPercent())
}

func printDraft(session *loyalty.Session) {
	account := session.Account()
	if account == nil {
		fmt.Println("no account resolved")
		return
	}
	printAccount(account)
	for i, svc := range session.Services() {
		fmt.Printf("  [%d] %s ₽%d\n", i, svc.Name, svc.PriceRub)
	}
	if len(session.Services()) > 0 {
		fmt.Printf("  award preview: %d bonuses\n", session.PreviewAward())
	}
	if session.SpendAmount() > 0 {
		fmt.Printf("  spend: %d bonuses\n", session.SpendAmount())
	}
	if session.NeedsResolve() {
		fmt.Println("  balance is stale, resolve the code again before submitting")
	}
}

func fail(err error) {
	if err != nil {
		fmt.Println("error:", err)
	}
}
