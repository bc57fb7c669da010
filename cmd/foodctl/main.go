// Command foodctl is a terminal client for the FoodConnect API: it signs in,
// keeps the session between runs and lets a vendor work their order queue.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"foodconnect/client"
	"foodconnect/logger"
	"foodconnect/models"
	"foodconnect/notifier"
	"foodconnect/session"
)

var errNotSignedIn = errors.New("not signed in; run foodctl login first")

type app struct {
	api     *client.Client
	session *session.Provider
	cache   *session.LocalCache
	log     *slog.Logger
}

func main() {
	var (
		apiURL      = flag.String("api", envOr("FOODCONNECT_URL", "http://localhost:8080"), "API base URL")
		sessionPath = flag.String("session", defaultSessionPath(), "Session cache file")
		verbose     = flag.Bool("v", false, "Log debug output to stderr")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Format: "text", Component: "foodctl", Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := open(ctx, *apiURL, *sessionPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "FoodConnect command line client\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  foodctl [--api URL] [--session FILE] [-v] <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  login       --email E [--password P]\n")
	fmt.Fprintf(os.Stderr, "  register    --name N --email E [--password P] [--role customer|vendor|driver|admin]\n")
	fmt.Fprintf(os.Stderr, "  logout\n")
	fmt.Fprintf(os.Stderr, "  whoami\n")
	fmt.Fprintf(os.Stderr, "  orders      [--status S]\n")
	fmt.Fprintf(os.Stderr, "  set-status  --order ID --status S [--note TEXT]\n")
	fmt.Fprintf(os.Stderr, "  watch       print a line for every new order until interrupted\n\n")
	fmt.Fprintf(os.Stderr, "The password may also be given in FOODCTL_PASSWORD.\n")
}

func open(ctx context.Context, apiURL, sessionPath string, log *slog.Logger) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(sessionPath), 0o700); err != nil {
		return nil, fmt.Errorf("session directory: %w", err)
	}
	cache, err := session.OpenLocalCache(sessionPath, log)
	if err != nil {
		return nil, err
	}

	api := client.New(apiURL, nil, log)
	p := session.NewProvider(api, api, cache, log)
	if err := p.Start(ctx); err != nil {
		cache.Close()
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := p.WaitIdle(waitCtx); err != nil {
		p.Close()
		cache.Close()
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	return &app{api: api, session: p, cache: cache, log: log}, nil
}

func (a *app) close() {
	a.session.Close()
	a.cache.Close()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		a.session.Logout(ctx)
		fmt.Println("Signed out")
		return nil
	case "whoami":
		return a.whoami()
	case "orders":
		return a.orders(ctx, args)
	case "set-status":
		return a.setStatus(ctx, args)
	case "watch":
		return a.watch(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", os.Getenv("FOODCTL_PASSWORD"), "Account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login needs --email and --password")
	}

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	return a.settled(ctx)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", os.Getenv("FOODCTL_PASSWORD"), "Account password")
	role := fs.String("role", string(models.RoleCustomer), "customer, vendor, driver or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" || *password == "" {
		return errors.New("register needs --name, --email and --password")
	}

	if err := a.session.Register(ctx, *name, *email, *password, models.UserRole(*role)); err != nil {
		return err
	}
	return a.settled(ctx)
}

// settled waits for the sign-in to resolve into a profile and prints it
func (a *app) settled(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := a.session.WaitIdle(waitCtx); err != nil {
		return err
	}
	return a.whoami()
}

func (a *app) whoami() error {
	snap := a.session.Snapshot()
	if snap.User == nil {
		return errNotSignedIn
	}
	line := fmt.Sprintf("%s <%s> (%s)", snap.User.Name, snap.User.Email, snap.User.Role)
	if snap.Phase == session.PhaseCacheHit {
		line += " [cached, not yet confirmed]"
	}
	fmt.Println(line)
	return nil
}

func (a *app) requireVendor() error {
	user := a.session.User()
	if user == nil {
		return errNotSignedIn
	}
	if user.Role != models.RoleVendor {
		return fmt.Errorf("%s is a %s account; this command is for vendors", user.Email, user.Role)
	}
	return nil
}

func (a *app) orders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	status := fs.String("status", "", "Only orders in this status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireVendor(); err != nil {
		return err
	}

	orders, err := a.api.VendorOrders(ctx, models.OrderStatus(*status))
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("No orders")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLACED\tCUSTOMER\tSTATUS\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\tR%.2f\n",
			o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), o.FirstName, o.LastName, o.Status, o.TotalAmount)
	}
	return tw.Flush()
}

func (a *app) setStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-status", flag.ContinueOnError)
	orderID := fs.String("order", "", "Order id")
	status := fs.String("status", "", "New status")
	note := fs.String("note", "", "Note for the status history")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" || *status == "" {
		return errors.New("set-status needs --order and --status")
	}
	if err := a.requireVendor(); err != nil {
		return err
	}

	order, err := a.api.SetOrderStatus(ctx, *orderID, models.OrderStatus(strings.ToLower(*status)), *note)
	if err != nil {
		return err
	}
	fmt.Printf("Order %s is now %s\n", order.ID, order.Status)
	return nil
}

// watch prints new orders for the vendor's restaurant until ctx ends or the session is lost
func (a *app) watch(ctx context.Context) error {
	if err := a.requireVendor(); err != nil {
		return err
	}
	restaurant, err := a.api.MyRestaurant(ctx)
	if err != nil {
		return err
	}
	if restaurant == nil {
		return errors.New("no restaurant set up for this account")
	}

	n := notifier.New(a.api, func(note notifier.Notification) {
		fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), note.Title, note.Description)
	}, a.log)
	if err := n.Watch(ctx, restaurant.ID); err != nil {
		return err
	}
	defer n.Close()

	lost, unwatch := signedOutSignal(a.session.Watch)
	defer unwatch()

	fmt.Printf("Watching orders for %s (Ctrl-C to stop)\n", restaurant.Name)
	select {
	case <-ctx.Done():
		return nil
	case <-lost:
		return errNotSignedIn
	}
}

// signedOutSignal returns a channel closed the first time watch reports a settled
// state with nobody signed in. Watchers may be called from several goroutines.
func signedOutSignal(watch func(func(session.Snapshot)) func()) (<-chan struct{}, func()) {
	lost := make(chan struct{})
	var once sync.Once
	unwatch := watch(func(s session.Snapshot) {
		if s.User == nil && !s.Loading {
			once.Do(func() { close(lost) })
		}
	})
	return lost, unwatch
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "foodconnect", "session.db")
}
