// Command demo-hostapp is a small host application wired end to end:
// a dev identity provider, a session manager, and the HTTP bridge the
// PrepDeck web UI talks to.
//
// Run it, then exercise the endpoints:
//
//	curl -X POST localhost:8080/auth/signin
//	curl localhost:8080/auth/session
//	curl -X POST localhost:8080/auth/signout
//
// The popup prompt reads credentials from stdin. Unset DEMO_INTERACTIVE
// to remove the prompt and watch the redirect fallback engage instead;
// finish it with:
//
//	curl -X POST localhost:8080/dev/complete-redirect -d '{"email":"student@prepdeck.dev","password":"letmein"}'
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/prepdeck/authkit"
	"github.com/prepdeck/authkit/devprovider"
)

func main() {
	provider := devprovider.New()
	if err := provider.AddAccount("student@prepdeck.dev", "letmein", "Demo Student", ""); err != nil {
		log.Fatalf("failed to seed account: %v", err)
	}
	if os.Getenv("DEMO_INTERACTIVE") != "" {
		provider.Prompt = stdinPrompt
	}

	manager := authkit.NewSessionManager(provider,
		authkit.WithLogger(slog.Default()))
	if err := manager.Start(context.Background()); err != nil {
		log.Fatalf("failed to start session manager: %v", err)
	}
	defer manager.Close()

	sessions := scs.New()
	sessions.Lifetime = 24 * time.Hour

	bridge := authkit.NewHTTPBridge(manager)
	bridge.Session = sessions
	if bridge.JWTSecretKey == "" {
		bridge.JWTSecretKey = "demo-only-secret"
	}

	mux := http.NewServeMux()
	mux.Handle("/auth/", http.StripPrefix("/auth", bridge.Handler()))
	mux.HandleFunc("/dev/complete-redirect", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := provider.CompleteRedirect(body.Email, body.Password); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// pretend the app was reopened after the external sign-in finished
		provider.NextLoad()
		if _, err := provider.PendingRedirectResult(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, "redirect completed")
	})

	addr := os.Getenv("DEMO_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("demo host app listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func stdinPrompt(ctx context.Context) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	fmt.Print("password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(email), strings.TrimSpace(password), nil
}
