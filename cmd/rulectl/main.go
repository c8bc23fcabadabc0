// Operator CLI for running apply and mining passes against the sqlite store
// directly, without going through the API server.
package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"smartspend/internal/cli"
	"smartspend/internal/core"
	"smartspend/internal/services"
	"smartspend/internal/storage"
)

// runCtx holds global options shared by the subcommands.
type runCtx struct {
	repo *storage.SQLiteRepository
}

var rulectl struct {
	DB string `help:"Path to the sqlite database." default:"./data/smartspend.db"`

	Apply    applyCmd    `cmd:"" help:"Apply stored rules to transactions."`
	Generate generateCmd `cmd:"" help:"Mine transaction history for rule suggestions."`
}

type applyCmd struct {
	IDs                []string `help:"Limit the pass to these transaction IDs."`
	IncludeCategorized bool     `help:"Also recategorize transactions that already have a category."`
}

func (c *applyCmd) Run(rc *runCtx) error {
	ctx := context.Background()
	svc := services.NewRuleService(rc.repo, rc.repo, rc.repo, nil)

	opts := core.ApplyOptions{SkipCategorized: !c.IncludeCategorized}
	if len(c.IDs) > 0 {
		opts.TransactionIDs = c.IDs
	}

	result, err := svc.ApplyRules(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Printf("updated %d transactions\n", result.UpdatedCount)
	for _, id := range result.UpdatedIDs {
		fmt.Printf("  %s\n", id)
	}
	for _, f := range result.Failures {
		fmt.Printf("  failed %s: %v\n", f.TransactionID, f.Err)
	}
	return nil
}

type generateCmd struct {
	Min       int  `default:"3" help:"Minimum occurrences before a rule is suggested."`
	Merchants bool `default:"true" help:"Mine repeated merchants."`
	Amounts   bool `help:"Mine repeated amounts."`
	Save      bool `help:"Persist the suggestions as active rules."`
}

func (c *generateCmd) Run(rc *runCtx) error {
	ctx := context.Background()
	svc := services.NewRuleService(rc.repo, rc.repo, rc.repo, nil)

	proposals, err := svc.GenerateRules(ctx, core.MineOptions{
		MinOccurrences: c.Min,
		FindMerchants:  c.Merchants,
		FindAmounts:    c.Amounts,
	})
	if err != nil {
		return err
	}
	if len(proposals) == 0 {
		fmt.Println("no suggestions")
		return nil
	}

	for _, p := range proposals {
		switch m := p.Match.(type) {
		case core.MerchantMatch:
			fmt.Printf("merchant %q -> %s (%d occurrences)\n", m.Pattern, p.CategoryID, p.Occurrences)
		case core.DescriptionMatch:
			fmt.Printf("description %q -> %s (%d occurrences)\n", m.Pattern, p.CategoryID, p.Occurrences)
		case core.AmountMatch:
			fmt.Printf("amount %.2f -> %s (%d occurrences)\n", core.Dollars(m.Cents), p.CategoryID, p.Occurrences)
		}
	}

	if !c.Save {
		return nil
	}
	for _, p := range proposals {
		created, err := rc.repo.CreateRule(ctx, p)
		if err != nil {
			return fmt.Errorf("save suggestion: %w", err)
		}
		fmt.Printf("saved rule %s\n", created.ID)
	}
	return nil
}

func main() {
	kctx := kong.Parse(&rulectl)

	logger := cli.SetupLogger("rulectl")
	repo := cli.InitSQLite(logger, rulectl.DB)
	defer repo.Close()

	err := kctx.Run(&runCtx{repo: repo})
	kctx.FatalIfErrorf(err)
}
