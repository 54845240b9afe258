package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	tiktok "github.com/phamanhtai263/bulk-mail-mvp"
	"github.com/phamanhtai263/bulk-mail-mvp/resultstore"
)

func main() {
	profileURL := flag.String("url", "", "TikTok profile URL to analyze")
	poll := flag.String("poll", "", "Read async enrichment result by key")
	pages := flag.Int("pages", 0, "Max comment pages to harvest (0 = default)")
	enrich := flag.Int("enrich", 0, "Max commenters to enrich synchronously (0 = default)")
	policy := flag.String("policy", "all", "Commenter contact policy: all | contact")
	proxyURL := flag.String("proxy", "", "Proxy URL (http/https/socks5)")
	cookies := flag.String("cookies", "", "Path to session cookies JSON file")
	useBrowser := flag.Bool("browser", false, "Launch the signing browser for API calls")
	redisAddr := flag.String("redis", os.Getenv("REDIS_ADDRESS"), "Redis address for the result store (empty = in-memory)")
	asJSON := flag.Bool("json", false, "Print the raw result as JSON")
	debug := flag.Bool("debug", false, "Verbose logging")
	flag.Parse()

	// Optional .env for REDIS_ADDRESS and friends.
	_ = godotenv.Load()

	if *profileURL == "" && *poll == "" {
		fmt.Fprintln(os.Stderr, "usage: bulkmail --url <profile url> | --poll <stats key>")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *debug {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("build logger: %v", err)
		}
	}
	defer logger.Sync()

	store, err := buildStore(*redisAddr)
	if err != nil {
		log.Fatalf("result store: %v", err)
	}

	cfg := tiktok.DefaultConfig()
	if *pages > 0 {
		cfg.MaxCommentPages = *pages
	}
	if *enrich > 0 {
		cfg.EnrichLimit = *enrich
	}

	s := tiktok.New().WithConfig(cfg).WithLogger(logger).WithResultStore(store)
	defer s.Close()

	if *proxyURL != "" {
		if err := s.SetProxy(*proxyURL); err != nil {
			log.Fatalf("set proxy: %v", err)
		}
	}

	ctx := context.Background()

	if *poll != "" {
		res, ok, err := s.ReadResult(ctx, *poll)
		if err != nil {
			log.Fatalf("read result: %v", err)
		}
		if !ok {
			fmt.Println("not ready")
			return
		}
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return
	}

	if *useBrowser {
		if err := s.InitBrowser(); err != nil {
			log.Fatalf("init browser: %v", err)
		}
		if *cookies != "" {
			if err := s.SessionWithCookies(*cookies); err != nil {
				log.Fatalf("load session: %v", err)
			}
		}
	} else if *cookies != "" {
		if err := s.LoadCookies(*cookies); err != nil {
			log.Fatalf("load cookies: %v", err)
		}
	}

	start := time.Now()
	result := s.GetInfo(ctx, *profileURL)
	if !result.Success {
		log.Fatalf("fetch failed: %s", result.Error)
	}

	if *policy == "contact" {
		result.Commenters = tiktok.ApplyContactPolicy(result.Commenters, tiktok.PolicyRequireContact)
	} else {
		result.Commenters = tiktok.ApplyContactPolicy(result.Commenters, tiktok.PolicyKeepAll)
	}

	if *asJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return
	}

	printResult(result, time.Since(start))
}

func buildStore(redisAddr string) (resultstore.Store, error) {
	if redisAddr == "" {
		return resultstore.NewMemory(), nil
	}
	return resultstore.NewRedis(resultstore.RedisConfig{
		Address:  redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

func printResult(r *tiktok.Result, took time.Duration) {
	fmt.Printf("User:       %s (%s)\n", r.Username, r.DisplayName)
	fmt.Printf("Followers:  %d\n", r.Followers)
	fmt.Printf("Following:  %d\n", r.Following)
	fmt.Printf("Likes:      %d\n", r.Likes)
	fmt.Printf("Videos:     %d\n", r.VideoCount)
	if r.Bio != "" {
		fmt.Printf("Bio:        %s\n", r.Bio)
	}
	if r.TargetPostURL != "" {
		fmt.Printf("Target:     %s (%s)\n", r.TargetPostURL, r.TargetReason)
	}

	for i, c := range r.Commenters {
		line := fmt.Sprintf("[%d] @%s", i+1, c.Identifier)
		if c.Followers != nil {
			line += fmt.Sprintf(" - %d followers", *c.Followers)
		}
		if c.Email != "" {
			line += " <" + c.Email + ">"
		}
		if c.Linktree != "" {
			line += " (" + c.Linktree + ")"
		}
		fmt.Println(line)
	}

	fmt.Printf("\nTotal: %d commenters in %v\n", len(r.Commenters), took.Round(time.Millisecond))
	if r.StatsKey != "" {
		fmt.Printf("Pending stats key: %s (poll with --poll)\n", r.StatsKey)
	}
}
