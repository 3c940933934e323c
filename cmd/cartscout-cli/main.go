// Command cartscout-cli is a small terminal client. It keeps tokens and an
// offline snapshot of the lists under -dir, so lists stay readable and
// changes are queued while the server is unreachable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"cartscout/internal/client"
	"cartscout/internal/domain"
)

const usage = `usage: cartscout-cli [-server URL] [-dir DIR] <command> [args]

commands:
  register EMAIL PASSWORD
  login EMAIL PASSWORD
  lists
  show LIST_ID
  new NAME
  add LIST_ID TEXT [QUANTITY]
  check LIST_ID ITEM_ID [true|false]
  search QUERY
  sync`

func main() {
	home, _ := os.UserHomeDir()
	server := flag.String("server", envOr("CARTSCOUT_URL", "http://localhost:8080"), "API base URL")
	dir := flag.String("dir", filepath.Join(home, ".cartscout"), "state directory")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	fs := afero.NewOsFs()
	c := client.New(*server, client.NewFileTokenStore(fs, *dir))
	off := client.NewOfflineLists(c, client.NewCache(fs, filepath.Join(*dir, "cache")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := run(ctx, c, off, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, off *client.OfflineLists, args []string) error {
	cmd, args := args[0], args[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: missing arguments\n%s", cmd, usage)
		}
		return nil
	}
	switch cmd {
	case "register", "login":
		if err := need(2); err != nil {
			return err
		}
		auth := c.Login
		if cmd == "register" {
			auth = c.Register
		}
		s, err := auth(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", s.User.Email)
		return nil

	case "lists":
		lists, fromCache, err := off.Lists(ctx)
		if err != nil {
			return err
		}
		offlineNote(fromCache)
		for _, l := range lists {
			fmt.Printf("%s  %-12s %s\n", l.ID, l.ListType, l.Name)
		}
		return nil

	case "show":
		if err := need(1); err != nil {
			return err
		}
		l, fromCache, err := off.List(ctx, args[0])
		if err != nil {
			return err
		}
		offlineNote(fromCache)
		printList(l)
		return nil

	case "new":
		if err := need(1); err != nil {
			return err
		}
		queued, err := off.CreateList(ctx, client.ListInput{Name: strings.Join(args, " ")})
		return report(queued, err)

	case "add":
		if err := need(2); err != nil {
			return err
		}
		in := client.ItemInput{FreeText: &args[1]}
		if strings.HasPrefix(args[1], "prod-") {
			in = client.ItemInput{CanonicalProductID: &args[1]}
		}
		if len(args) > 2 {
			q, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("quantity: %w", err)
			}
			in.Quantity = &q
		}
		queued, err := off.AddItem(ctx, args[0], in)
		return report(queued, err)

	case "check":
		if err := need(2); err != nil {
			return err
		}
		checked := true
		if len(args) > 2 {
			b, err := strconv.ParseBool(args[2])
			if err != nil {
				return fmt.Errorf("checked: %w", err)
			}
			checked = b
		}
		queued, err := off.CheckItem(ctx, args[0], args[1], checked)
		return report(queued, err)

	case "search":
		if err := need(1); err != nil {
			return err
		}
		products, err := c.SearchProducts(ctx, strings.Join(args, " "), 0)
		if err != nil {
			return err
		}
		for _, p := range products {
			fmt.Printf("%-24s %s\n", p.ID, label(p))
		}
		return nil

	case "sync":
		res, err := off.Flush(ctx)
		fmt.Printf("applied %d, dropped %d, pending %d\n", res.Applied, res.Dropped, res.Remaining)
		if err != nil {
			return err
		}
		return off.Refresh(ctx)
	}
	return errors.New(usage)
}

func report(queued bool, err error) error {
	if err != nil {
		return err
	}
	if queued {
		fmt.Println("server unreachable, change queued; run sync later")
		return nil
	}
	fmt.Println("ok")
	return nil
}

func offlineNote(fromCache bool) {
	if fromCache {
		fmt.Println("(offline, showing saved copy)")
	}
}

func printList(l domain.ListWithItems) {
	fmt.Printf("%s (%s)\n", l.Name, l.ListType)
	for _, it := range l.Items {
		box := "[ ]"
		if it.Checked {
			box = "[x]"
		}
		fmt.Printf("  %s %s x%g  %s\n", box, it.ID, it.Quantity, it.Label())
	}
}

func label(p domain.CanonicalProduct) string {
	s := p.DisplayName
	if p.Brand != nil && *p.Brand != "" {
		s = *p.Brand + " " + s
	}
	if p.SizeDescription != nil && *p.SizeDescription != "" {
		s += ", " + *p.SizeDescription
	}
	return s
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
