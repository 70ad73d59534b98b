// Command blocklist manages the blacklist collections out-of-band: the
// running cleanser only ever reads them, all mutation happens here.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"hn_cleanser/internal/config"
	"hn_cleanser/internal/model"
	"hn_cleanser/internal/rules"
	"hn_cleanser/internal/store"
)

func defaultCollections() config.Collections {
	return config.Collections{
		BlacklistedTitles: "blacklistedTitles",
		BlacklistedSites:  "blacklistedSites",
		BlacklistedUsers:  "blacklistedUsers",
		CleansedItems:     "cleansedItems",
		ReportsLog:        "weeklyReportsLog",
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: blocklist [-db path] <command> [arguments]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  add <kind> <value>...    Add blocklist rules; kind is one of")
	fmt.Fprintln(os.Stderr, "                           text, keyword, regex, site, user")
	fmt.Fprintln(os.Stderr, "  list                     List all blocklist rules")
	fmt.Fprintln(os.Stderr, "  remove <collection> <id> Remove one rule by id")
	fmt.Fprintln(os.Stderr, "  drop <collection>        Remove every document in a collection")
	os.Exit(1)
}

func main() {
	dbPath := flag.String("db", envOrDefault("HNC_DATABASE_PATH", "./data/cleanser.db"), "path to sqlite database")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = st.Close() }()

	cols := defaultCollections()
	catalog := store.NewCatalog(st, cols)
	ctx := context.Background()

	switch args[0] {
	case "add":
		if len(args) < 3 {
			usage()
		}
		runAdd(ctx, catalog, args[1], args[2:])
	case "list":
		runList(ctx, catalog)
	case "remove":
		if len(args) != 3 {
			usage()
		}
		if err := st.DeleteByID(ctx, args[1], args[2]); err != nil {
			log.Fatalf("remove: %v", err)
		}
		fmt.Printf("removed %s from %s\n", args[2], args[1])
	case "drop":
		if len(args) != 2 {
			usage()
		}
		if err := st.Drop(ctx, args[1]); err != nil {
			log.Fatalf("drop: %v", err)
		}
		fmt.Printf("dropped %s\n", args[1])
	default:
		log.Fatalf("unknown command: %s", args[0])
	}
}

func runAdd(ctx context.Context, catalog *store.Catalog, kind string, values []string) {
	switch kind {
	case "text", "keyword", "regex":
		existing, err := catalog.FindBlacklistedTitles(ctx)
		if err != nil {
			log.Fatalf("list title rules: %v", err)
		}
		for _, value := range values {
			if kind == "regex" {
				if err := rules.ValidateRegex(value); err != nil {
					log.Fatalf("invalid regex %q: %v", value, err)
				}
			}
			if hasTitleRule(existing, model.TitleRuleKind(kind), value) {
				fmt.Printf("title %s %q is already blacklisted\n", kind, value)
				continue
			}
			rule := model.TitleRule{Kind: model.TitleRuleKind(kind), Value: value}
			if _, err := catalog.AddTitleRule(ctx, rule); err != nil {
				log.Fatalf("add title rule: %v", err)
			}
			fmt.Printf("blacklisted titles matching %s %q\n", kind, value)
		}
	case "site":
		existing, err := catalog.FindBlacklistedSites(ctx)
		if err != nil {
			log.Fatalf("list site rules: %v", err)
		}
		for _, value := range values {
			if hasSiteRule(existing, value) {
				fmt.Printf("site %q is already blacklisted\n", value)
				continue
			}
			if _, err := catalog.AddSiteRule(ctx, model.SiteRule{Site: value}); err != nil {
				log.Fatalf("add site rule: %v", err)
			}
			fmt.Printf("blacklisted site %q\n", value)
		}
	case "user":
		existing, err := catalog.FindBlacklistedUsers(ctx)
		if err != nil {
			log.Fatalf("list user rules: %v", err)
		}
		for _, value := range values {
			if hasUserRule(existing, value) {
				fmt.Printf("user %q is already blacklisted\n", value)
				continue
			}
			if _, err := catalog.AddUserRule(ctx, model.UserRule{User: value}); err != nil {
				log.Fatalf("add user rule: %v", err)
			}
			fmt.Printf("blacklisted user %q\n", value)
		}
	default:
		usage()
	}
}

func runList(ctx context.Context, catalog *store.Catalog) {
	titles, err := catalog.FindBlacklistedTitles(ctx)
	if err != nil {
		log.Fatalf("list title rules: %v", err)
	}
	sites, err := catalog.FindBlacklistedSites(ctx)
	if err != nil {
		log.Fatalf("list site rules: %v", err)
	}
	users, err := catalog.FindBlacklistedUsers(ctx)
	if err != nil {
		log.Fatalf("list user rules: %v", err)
	}
	total, err := catalog.CountCleansedItems(ctx)
	if err != nil {
		log.Fatalf("count cleansed items: %v", err)
	}

	fmt.Printf("Title rules (%d):\n", len(titles))
	for _, r := range titles {
		fmt.Printf("  %s  [%s] %q\n", r.ID, r.Kind, r.Value)
	}
	fmt.Printf("Site rules (%d):\n", len(sites))
	for _, r := range sites {
		fmt.Printf("  %s  %q\n", r.ID, r.Site)
	}
	fmt.Printf("User rules (%d):\n", len(users))
	for _, r := range users {
		fmt.Printf("  %s  %q\n", r.ID, r.User)
	}
	fmt.Printf("Stories cleansed all time: %d\n", total)
}

func hasTitleRule(rulesList []model.TitleRule, kind model.TitleRuleKind, value string) bool {
	for _, r := range rulesList {
		if r.Kind == kind && r.Value == value {
			return true
		}
	}
	return false
}

func hasSiteRule(rulesList []model.SiteRule, site string) bool {
	for _, r := range rulesList {
		if r.Site == site {
			return true
		}
	}
	return false
}

func hasUserRule(rulesList []model.UserRule, user string) bool {
	for _, r := range rulesList {
		if r.User == user {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
