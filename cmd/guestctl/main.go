// guestctl 离线维护：导入宾客/座位、生成座位、批量发邀请、修复签到计数
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"guest_tracker/config"
	"guest_tracker/db"
	"guest_tracker/importer"
	"guest_tracker/mail"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, repo *db.Repo, cfg config.Config, args []string) (any, error)
}

var commands = []command{
	{"import-guests", "-file guests.csv [-event ID -create-invitations]", importGuests},
	{"import-seating", "-event ID -file x.csv -type tables|seating [-preview -create-seats]", importSeating},
	{"import-event-config", "-event ID -file config.json [-preview -merge -sync]", importEventConfig},
	{"create-seats", "[-event ID] [-preview]", createSeats},
	{"send-invitations", "-event ID [-resend]", sendInvitations},
	{"recount", "[-event ID]", recount},
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: guestctl <command> [flags]")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-20s %s\n", c.name, c.usage)
	}
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	var cmd *command
	for i := range commands {
		if commands[i].name == os.Args[1] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		usage()
	}

	config.LoadEnv()
	cfg := config.MustLoad()
	repo := db.NewRepo(db.ConnectDB(cfg))

	out, err := cmd.run(context.Background(), repo, cfg, os.Args[2:])
	if err != nil {
		log.Fatalf("%s: %v", cmd.name, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

var errFlag = errors.New("missing required flag")

func openFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: -file", errFlag)
	}
	return os.Open(path)
}

func importGuests(ctx context.Context, repo *db.Repo, _ config.Config, args []string) (any, error) {
	fs := flag.NewFlagSet("import-guests", flag.ExitOnError)
	file := fs.String("file", "", "CSV file")
	event := fs.Uint("event", 0, "event ID")
	withInv := fs.Bool("create-invitations", false, "create an invitation per guest")
	_ = fs.Parse(args)

	f, err := openFile(*file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return importer.ImportGuests(ctx, repo, f, importer.GuestOptions{
		EventID:           uint(*event),
		CreateInvitations: *withInv,
	})
}

func importSeating(ctx context.Context, repo *db.Repo, _ config.Config, args []string) (any, error) {
	fs := flag.NewFlagSet("import-seating", flag.ExitOnError)
	file := fs.String("file", "", "CSV file")
	event := fs.Uint("event", 0, "event ID")
	kind := fs.String("type", "tables", "tables|seating")
	preview := fs.Bool("preview", false, "report without writing")
	withSeats := fs.Bool("create-seats", false, "create seat rows for imported tables")
	_ = fs.Parse(args)

	if *event == 0 {
		return nil, fmt.Errorf("%w: -event", errFlag)
	}
	f, err := openFile(*file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch *kind {
	case "tables":
		return importer.ImportTables(ctx, repo, uint(*event), f, *preview, *withSeats)
	case "seating":
		return importer.ImportSeating(ctx, repo, uint(*event), f, *preview)
	}
	return nil, fmt.Errorf("unknown -type %q", *kind)
}

func importEventConfig(ctx context.Context, repo *db.Repo, _ config.Config, args []string) (any, error) {
	fs := flag.NewFlagSet("import-event-config", flag.ExitOnError)
	file := fs.String("file", "", "JSON file")
	event := fs.Uint("event", 0, "event ID")
	var opts db.ArrangementOptions
	fs.BoolVar(&opts.Preview, "preview", false, "report without writing")
	fs.BoolVar(&opts.Merge, "merge", false, "keep existing tables and seats")
	fs.BoolVar(&opts.Sync, "sync", false, "drop unassigned seats beyond capacity")
	_ = fs.Parse(args)

	if *event == 0 {
		return nil, fmt.Errorf("%w: -event", errFlag)
	}
	f, err := openFile(*file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return importer.ImportEventConfig(ctx, repo, uint(*event), f, opts)
}

// eventIDs -event 为 0 时处理全部活动
func eventIDs(ctx context.Context, repo *db.Repo, id uint) ([]uint, error) {
	if id != 0 {
		return []uint{id}, nil
	}
	return repo.EventIDs(ctx)
}

func createSeats(ctx context.Context, repo *db.Repo, _ config.Config, args []string) (any, error) {
	fs := flag.NewFlagSet("create-seats", flag.ExitOnError)
	event := fs.Uint("event", 0, "event ID (all events when 0)")
	preview := fs.Bool("preview", false, "report without writing")
	_ = fs.Parse(args)

	ids, err := eventIDs(ctx, repo, uint(*event))
	if err != nil {
		return nil, err
	}
	out := map[uint]*db.GenerateSeatsResult{}
	for _, id := range ids {
		res, err := repo.GenerateSeats(ctx, id, *preview)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", id, err)
		}
		out[id] = res
	}
	return out, nil
}

func sendInvitations(ctx context.Context, repo *db.Repo, cfg config.Config, args []string) (any, error) {
	fs := flag.NewFlagSet("send-invitations", flag.ExitOnError)
	event := fs.Uint("event", 0, "event ID")
	resend := fs.Bool("resend", false, "include invitations already sent")
	_ = fs.Parse(args)

	if *event == 0 {
		return nil, fmt.Errorf("%w: -event", errFlag)
	}
	composer, err := mail.NewComposer(cfg.SMTP.AppName, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	svc := mail.NewService(mail.New(cfg.SMTP), composer)
	return svc.SendInvitations(ctx, repo, uint(*event), nil, *resend)
}

func recount(ctx context.Context, repo *db.Repo, _ config.Config, args []string) (any, error) {
	fs := flag.NewFlagSet("recount", flag.ExitOnError)
	event := fs.Uint("event", 0, "event ID (all events when 0)")
	_ = fs.Parse(args)

	ids, err := eventIDs(ctx, repo, uint(*event))
	if err != nil {
		return nil, err
	}
	out := map[uint]int64{}
	for _, id := range ids {
		n, err := repo.RecountCheckedIn(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", id, err)
		}
		out[id] = n
	}
	return out, nil
}
