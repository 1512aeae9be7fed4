package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/MrEthical07/goPerm/jwt"
	"github.com/MrEthical07/goPerm/metrics/export/prometheus"
	"github.com/MrEthical07/goPerm/middleware"
	"github.com/MrEthical07/goPerm/permission"
	"github.com/MrEthical07/goPerm/userstore"
	"go.uber.org/zap"
)

type commands struct {
	engine *goPerm.Engine
	store  *userstore.Store
	opts   options
	logger *zap.Logger
	out    io.Writer
	now    func() time.Time
}

func (c *commands) dispatch(ctx context.Context, args []string) error {
	name, rest := args[0], args[1:]
	switch name {
	case "features":
		return c.features(rest)
	case "level":
		return c.level(rest)
	case "encode":
		return c.encode(rest)
	case "decode":
		return c.decode(rest)
	case "seed":
		return c.seed(ctx, rest)
	case "resolve":
		return c.resolve(ctx, rest)
	case "check":
		return c.check(ctx, rest)
	case "has-level":
		return c.hasLevel(ctx, rest)
	case "set-level":
		return c.setLevel(ctx, rest)
	case "set-active":
		return c.setActive(ctx, rest)
	case "set-overrides":
		return c.setOverrides(ctx, rest)
	case "clear-overrides":
		if err := wantArgs(rest, 1, "clear-overrides <user>"); err != nil {
			return err
		}
		return c.engine.ClearOverrides(ctx, rest[0])
	case "invalidate":
		if err := wantArgs(rest, 1, "invalidate <user>"); err != nil {
			return err
		}
		return c.engine.Invalidate(ctx, rest[0])
	case "serve":
		return c.serve(ctx)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (c *commands) features(args []string) error {
	if err := wantArgs(args, 0, "features"); err != nil {
		return err
	}
	c.printActions(c.engine.ListAllFeatures())
	return nil
}

func (c *commands) level(args []string) error {
	if err := wantArgs(args, 1, "level <level>"); err != nil {
		return err
	}
	lvl, err := parseLevel(args[0])
	if err != nil {
		return err
	}
	c.printActions(c.engine.ListActionsAtLevel(lvl))
	return nil
}

func (c *commands) encode(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: encode <feature=a,b>...")
	}
	perms, err := parseGrants(args)
	if err != nil {
		return err
	}
	encode := c.engine.EncodeOverrides
	if c.opts.strict {
		encode = c.engine.EncodeOverridesStrict
	}
	encoded, err := encode(perms)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, encoded)
	return nil
}

func (c *commands) decode(args []string) error {
	if err := wantArgs(args, 1, "decode <overrides>"); err != nil {
		return err
	}
	c.printActions(c.engine.DecodeOverrides(args[0]))
	return nil
}

func (c *commands) seed(ctx context.Context, args []string) error {
	if err := wantArgs(args, 2, "seed <user> <level>"); err != nil {
		return err
	}
	lvl, err := parseLevel(args[1])
	if err != nil {
		return err
	}
	if err := c.store.Upsert(ctx, goPerm.UserRecord{UserID: args[0], Level: lvl, IsActive: true}); err != nil {
		return err
	}
	return c.engine.Invalidate(ctx, args[0])
}

func (c *commands) resolve(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, "resolve <user>"); err != nil {
		return err
	}
	perms, err := c.engine.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(perms)
}

func (c *commands) check(ctx context.Context, args []string) error {
	if err := wantArgs(args, 3, "check <user> <feature> <action>"); err != nil {
		return err
	}
	ok, err := c.engine.HasAction(ctx, args[0], args[1], args[2])
	return c.verdict(ok, err)
}

func (c *commands) hasLevel(ctx context.Context, args []string) error {
	if err := wantArgs(args, 2, "has-level <user> <level>"); err != nil {
		return err
	}
	lvl, err := parseLevel(args[1])
	if err != nil {
		return err
	}
	ok, err := c.engine.HasLevel(ctx, args[0], lvl)
	return c.verdict(ok, err)
}

func (c *commands) verdict(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(c.out, "denied")
		return errDenied
	}
	fmt.Fprintln(c.out, "allowed")
	return nil
}

func (c *commands) setLevel(ctx context.Context, args []string) error {
	if err := wantArgs(args, 2, "set-level <user> <level>"); err != nil {
		return err
	}
	lvl, err := parseLevel(args[1])
	if err != nil {
		return err
	}
	return c.engine.SetLevel(ctx, args[0], lvl)
}

func (c *commands) setActive(ctx context.Context, args []string) error {
	if err := wantArgs(args, 2, "set-active <user> <true|false>"); err != nil {
		return err
	}
	active, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("invalid active flag %q", args[1])
	}
	return c.engine.SetActive(ctx, args[0], active)
}

func (c *commands) setOverrides(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: set-overrides <user> <feature=a,b>...")
	}
	perms, err := parseGrants(args[1:])
	if err != nil {
		return err
	}

	var expiresAt *time.Time
	if c.opts.expires > 0 {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		t := now().Add(c.opts.expires).UTC()
		expiresAt = &t
	}
	return c.engine.SetOverrides(ctx, args[0], perms, expiresAt)
}

func (c *commands) serve(ctx context.Context) error {
	subject := middleware.HeaderSubject("X-User-ID")
	if secret := os.Getenv("PERMCTL_JWT_SECRET"); secret != "" {
		m, err := jwt.NewManager(jwt.Config{TTL: time.Hour, SigningMethod: jwt.MethodHS256, PrivateKey: []byte(secret)})
		if err != nil {
			return err
		}
		subject = middleware.BearerSubject(m)
	}

	srv := &http.Server{
		Addr:              c.opts.listenAddr,
		Handler:           newServeMux(c.engine, subject),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	c.logger.Info("serving", zap.String("addr", c.opts.listenAddr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newServeMux(engine *goPerm.Engine, subject middleware.SubjectFunc) *http.ServeMux {
	allowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(engine.Health(r.Context()))
	})
	mux.HandleFunc("GET /v1/allowed/{feature}/{action}", func(w http.ResponseWriter, r *http.Request) {
		middleware.RequireAction(engine, subject, r.PathValue("feature"), r.PathValue("action"))(allowed).ServeHTTP(w, r)
	})
	mux.HandleFunc("GET /v1/level/{level}", func(w http.ResponseWriter, r *http.Request) {
		lvl, err := parseLevel(r.PathValue("level"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		middleware.RequireLevel(engine, subject, lvl)(allowed).ServeHTTP(w, r)
	})
	return mux
}

func cmdToken(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: token <user> [actor]")
	}
	secret := os.Getenv("PERMCTL_JWT_SECRET")
	if secret == "" {
		return errors.New("PERMCTL_JWT_SECRET is not set")
	}
	m, err := jwt.NewManager(jwt.Config{TTL: time.Hour, SigningMethod: jwt.MethodHS256, PrivateKey: []byte(secret)})
	if err != nil {
		return err
	}
	actor := ""
	if len(args) == 2 {
		actor = args[1]
	}
	token, err := m.Issue(args[0], actor)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func (c *commands) printActions(actions map[string][]string) {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "%s: %s\n", name, strings.Join(actions[name], ", "))
	}
}

// parseGrants reads "feature=a,b" arguments.
func parseGrants(args []string) (map[string][]string, error) {
	perms := make(map[string][]string, len(args))
	for _, arg := range args {
		feature, list, ok := strings.Cut(arg, "=")
		if !ok || feature == "" {
			return nil, fmt.Errorf("invalid grant %q, want feature=action,action", arg)
		}
		var actions []string
		for _, a := range strings.Split(list, ",") {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, a)
			}
		}
		perms[feature] = append(perms[feature], actions...)
	}
	return perms, nil
}

func parseLevel(s string) (goPerm.Level, error) {
	lvl, ok := permission.ParseLevel(strings.ToLower(s))
	if !ok {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	return lvl, nil
}

func wantArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}
