package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/usecase"
)

type cli struct {
	out        io.Writer
	errOut     io.Writer
	loadConfig func() (*config.Config, error)
	open       func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{
		out:        stdout,
		errOut:     stderr,
		loadConfig: config.Load,
		open:       newApp,
	}
	return c.rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ledger",
		Short:        "Account ledger engine",
		Long:         `Deposits, withdrawals and transfers over an append-only ledger with non-negative balances.`,
		SilenceUsage: true,
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.AddCommand(
		c.migrateCmd(),
		c.accountCmd(),
		c.depositCmd(),
		c.withdrawCmd(),
		c.transferCmd(),
		c.entriesCmd(),
		c.balanceCmd(),
		c.reconcileCmd(),
		c.serveCmd(),
	)

	return root
}

// run loads config, wires the app and hands it to fn.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx := cmd.Context()
	a, err := c.open(ctx, cfg, newLogger(cfg, c.errOut))
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the PostgreSQL schema",
	}

	migrate := func(apply func(cfg *config.Config, log zerolog.Logger) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrations need STORE_DRIVER=%s, got %s", config.DriverPostgres, cfg.StoreDriver)
			}
			return apply(cfg, newLogger(cfg, c.errOut))
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: migrate(func(cfg *config.Config, log zerolog.Logger) error {
			return postgres.RunMigrations(cfg.DatabaseURL, log)
		}),
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: migrate(func(cfg *config.Config, log zerolog.Logger) error {
			return postgres.RunMigrationsDown(cfg.DatabaseURL, steps, log)
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func (c *cli) accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Open, inspect and close accounts",
	}

	var (
		customer    string
		accountType string
		initial     string
	)
	open := &cobra.Command{
		Use:   "open",
		Short: "Open an account for a customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opening, err := parseOpeningBalance(initial)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				account, err := a.accounts.OpenAccount(ctx, usecase.OpenAccountInput{
					CustomerID:     customer,
					Type:           domain.AccountType(accountType),
					OpeningBalance: opening,
				})
				if err != nil {
					return err
				}
				return writeJSON(c.out, accountFromDomain(account))
			})
		},
	}
	open.Flags().StringVar(&customer, "customer", "", "Owning customer id")
	open.Flags().StringVar(&accountType, "type", string(domain.AccountTypeCurrent), "Account type (SAVINGS or CURRENT)")
	open.Flags().StringVar(&initial, "initial", "0", "Opening balance")
	_ = open.MarkFlagRequired("customer")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				account, err := a.ledger.GetAccount(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(c.out, accountFromDomain(account))
			})
		},
	}

	var (
		listCustomer string
		limit        int
		offset       int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List a customer's accounts, or all accounts page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				var (
					accounts []*domain.Account
					err      error
				)
				if listCustomer != "" {
					accounts, err = a.ledger.ListAccountsForCustomer(ctx, listCustomer)
				} else {
					accounts, err = a.accounts.ListAccounts(ctx, usecase.ListAccountsInput{Limit: limit, Offset: offset})
				}
				if err != nil {
					return err
				}
				return writeJSON(c.out, accountsFromDomain(accounts))
			})
		},
	}
	list.Flags().StringVar(&listCustomer, "customer", "", "Only accounts owned by this customer")
	list.Flags().IntVar(&limit, "limit", 0, "Page size when listing all accounts")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset when listing all accounts")

	closeCmd := &cobra.Command{
		Use:   "close ID",
		Short: "Close an account with a zero balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				account, err := a.accounts.CloseAccount(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(c.out, accountFromDomain(account))
			})
		},
	}

	cmd.AddCommand(open, get, list, closeCmd)
	return cmd
}

func (c *cli) depositCmd() *cobra.Command {
	var accountID, amount, key string
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Credit an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := domain.ParseAmount(amount)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				result, err := a.balances.Deposit(ctx, usecase.DepositInput{
					AccountID:      accountID,
					Amount:         value,
					IdempotencyKey: key,
				})
				if err != nil {
					return err
				}
				return writeJSON(c.out, operationFromResult(result))
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Account id")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 10.00")
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (c *cli) withdrawCmd() *cobra.Command {
	var accountID, amount, key string
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Debit an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := domain.ParseAmount(amount)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				result, err := a.balances.Withdraw(ctx, usecase.WithdrawInput{
					AccountID:      accountID,
					Amount:         value,
					IdempotencyKey: key,
				})
				if err != nil {
					return err
				}
				return writeJSON(c.out, operationFromResult(result))
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Account id")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 10.00")
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (c *cli) transferCmd() *cobra.Command {
	var from, to, amount, key string
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := domain.ParseAmount(amount)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				result, err := a.balances.Transfer(ctx, usecase.TransferInput{
					FromAccountID:  from,
					ToAccountID:    to,
					Amount:         value,
					IdempotencyKey: key,
				})
				if err != nil {
					return err
				}
				return writeJSON(c.out, operationFromResult(result))
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source account id")
	cmd.Flags().StringVar(&to, "to", "", "Destination account id")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 10.00")
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (c *cli) entriesCmd() *cobra.Command {
	var (
		accountID   string
		customerID  string
		operationID string
		limit       int
		offset      int
	)
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List ledger entries newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				var (
					entries []*domain.LedgerEntry
					err     error
				)
				paged := limit > 0 || offset > 0
				switch {
				case accountID != "" && paged:
					entries, err = a.entries.ListEntriesByAccount(ctx, usecase.ListEntriesInput{AccountID: accountID, Limit: limit, Offset: offset})
				case accountID != "":
					entries, err = a.ledger.EntriesForAccount(ctx, accountID)
				case customerID != "" && paged:
					entries, err = a.entries.ListEntriesByCustomer(ctx, usecase.ListEntriesInput{CustomerID: customerID, Limit: limit, Offset: offset})
				case customerID != "":
					entries, err = a.ledger.EntriesForCustomer(ctx, customerID)
				default:
					entries, err = a.entries.EntriesForOperation(ctx, operationID)
				}
				if err != nil {
					return err
				}
				return writeJSON(c.out, entriesFromDomain(entries))
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Entries of one account")
	cmd.Flags().StringVar(&customerID, "customer", "", "Entries of every account a customer owns")
	cmd.Flags().StringVar(&operationID, "operation", "", "Entries written by one operation")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	cmd.MarkFlagsMutuallyExclusive("account", "customer", "operation")
	cmd.MarkFlagsOneRequired("account", "customer", "operation")
	return cmd
}

func (c *cli) balanceCmd() *cobra.Command {
	var accountID, at string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show an account balance, optionally as of a past instant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var asOf time.Time
			if at != "" {
				t, err := time.Parse(time.RFC3339Nano, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				asOf = t
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if asOf.IsZero() {
					account, err := a.ledger.GetAccount(ctx, accountID)
					if err != nil {
						return err
					}
					return writeJSON(c.out, balanceView{AccountID: account.ID, Balance: account.Balance})
				}
				balance, err := a.entries.BalanceAt(ctx, accountID, asOf)
				if err != nil {
					return err
				}
				return writeJSON(c.out, balanceView{AccountID: accountID, Balance: balance})
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Account id")
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 instant")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func (c *cli) reconcileCmd() *cobra.Command {
	var accountID string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check balances against the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if accountID != "" {
					result, err := a.reconciliation.ReconcileAccount(ctx, accountID)
					if err != nil {
						return err
					}
					if err := writeJSON(c.out, result); err != nil {
						return err
					}
					if !result.IsReconciled {
						return fmt.Errorf("%w: account %s differs by %s", domain.ErrInconsistentLedger, accountID, result.Difference)
					}
					return nil
				}

				report, err := a.reconciliation.GenerateReconciliationReport(ctx)
				if err != nil {
					return err
				}
				if err := writeJSON(c.out, report); err != nil {
					return err
				}
				if !report.LedgerConsistent || len(report.Discrepancies) > 0 {
					return errInconsistentReport(report)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Reconcile a single account")
	return cmd
}

func errInconsistentReport(report *usecase.ReconciliationReport) error {
	if report.LedgerError != "" {
		return errors.New(report.LedgerError)
	}
	return fmt.Errorf("%w: %d of %d accounts do not reconcile",
		domain.ErrInconsistentLedger, len(report.Discrepancies), report.TotalAccounts)
}

func parseOpeningBalance(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidOpeningFunds, s)
	}
	return d, nil
}
