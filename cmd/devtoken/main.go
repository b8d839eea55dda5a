package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	pkgAuth "github.com/angelmondragon/storetrack-backend/pkg/auth"
	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
)

// devtoken mints an access token for local testing against the API.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "storetrack-devtoken"})

	_ = godotenv.Load()

	kind := flag.String("kind", string(enums.PrincipalKindUser), "principal kind: user|staff")
	subject := flag.String("subject", "", "user or staff id")
	store := flag.String("store", "", "store id")
	role := flag.String("role", "", "member role: owner|manager|staff (defaults from kind)")
	name := flag.String("name", "", "display name carried in the token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	if cfg.App.IsProd() {
		fmt.Fprintln(os.Stderr, "devtoken refuses to run in prod")
		os.Exit(1)
	}

	payload, err := buildPayload(*kind, *subject, *store, *role, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
		os.Exit(1)
	}

	token, err := pkgAuth.Issue(cfg.JWT, time.Now(), payload)
	if err != nil {
		logg.Error(ctx, "failed to mint token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func buildPayload(kind, subject, store, role, name string) (pkgAuth.Grant, error) {
	principalKind, err := enums.ParsePrincipalKind(kind)
	if err != nil {
		return pkgAuth.Grant{}, err
	}
	subjectID, err := uuid.Parse(subject)
	if err != nil {
		return pkgAuth.Grant{}, fmt.Errorf("subject: %w", err)
	}
	storeID, err := uuid.Parse(store)
	if err != nil {
		return pkgAuth.Grant{}, fmt.Errorf("store: %w", err)
	}

	memberRole := enums.MemberRoleOwner
	if principalKind == enums.PrincipalKindStaff {
		memberRole = enums.MemberRoleStaff
	}
	if role != "" {
		if memberRole, err = enums.ParseMemberRole(role); err != nil {
			return pkgAuth.Grant{}, err
		}
	}

	return pkgAuth.Grant{
		SubjectID: subjectID,
		Kind:      principalKind,
		StoreID:   storeID,
		Role:      memberRole,
		Name:      name,
	}, nil
}
