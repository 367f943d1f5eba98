// Command kycctl is the operator tool: it signs development tokens, grants
// roles, and prints verification records straight from DynamoDB.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/kyc-ledger/internal/application/user"
	"github.com/kyc-ledger/internal/config"
	"github.com/kyc-ledger/internal/directory"
	"github.com/kyc-ledger/internal/domain"
	"github.com/kyc-ledger/internal/infrastructure/dynamo"
	jwtinfra "github.com/kyc-ledger/internal/infrastructure/jwt"
	redisinfra "github.com/kyc-ledger/internal/infrastructure/redis"
)

const usage = `usage: kycctl <command> [flags]

commands:
  token       -user ID -role ROLE   sign a bearer token
  grant-role  -user ID -role ROLE   change a user's role
  records     [-status STATUS]      list verification records (default pending)
  bootstrap                         create missing DynamoDB tables
`

var errUsage = errors.New("invalid usage")

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(config.NewLogger(cfg))

	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		slog.Error("kycctl failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "token":
		userID, role, err := userRoleFlags(cmd, args)
		if err != nil {
			return err
		}
		return signToken(cfg, userID, role, out)
	case "grant-role":
		userID, role, err := userRoleFlags(cmd, args)
		if err != nil {
			return err
		}
		return grantRole(ctx, cfg, userID, role, out)
	case "records":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		status := fs.String("status", string(domain.StatusPending), "verification status")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		st, err := domain.ParseVerificationStatus(*status)
		if err != nil {
			return err
		}
		return listRecords(ctx, cfg, st, out)
	case "bootstrap":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.Ready(ctx, client, cfg.DynamoTables)
	default:
		return errUsage
	}
}

func userRoleFlags(cmd string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	role := fs.String("role", "", "customer, artist or admin")
	if err := fs.Parse(args); err != nil {
		return "", "", errUsage
	}
	if *userID == "" || !domain.ValidRole(*role) {
		return "", "", errUsage
	}
	return *userID, *role, nil
}

func signToken(cfg *config.Config, userID, role string, out io.Writer) error {
	p, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return err
	}
	tok, err := p.Sign(userID, role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

func grantRole(ctx context.Context, cfg *config.Config, userID, role string, out io.Writer) error {
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	users := dynamo.NewUserRepo(client, cfg.DynamoTables.Users)
	deps := user.ServiceDeps{UserRepo: users}
	rc, err := redisinfra.New(cfg)
	if err != nil {
		return fmt.Errorf("directory cache: %w", err)
	}
	if rc != nil {
		defer rc.Close()
		deps.Cache = directory.NewCached(directory.NewRepo(users), rc, cfg.DirectoryCacheTTL, slog.Default())
	}
	u, err := user.NewService(deps).SetRole(ctx, userID, role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s is now %s\n", u.UserID, u.Role)
	return err
}

func listRecords(ctx context.Context, cfg *config.Config, status domain.VerificationStatus, out io.Writer) error {
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	recs, err := dynamo.NewVerificationRepo(client, cfg.DynamoTables.Verifications).ListByStatus(ctx, status)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}
