package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hilalcal/hilal/internal/service"
)

func (a *app) admin(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%s: missing subcommand\n\n%s", args[0], usage)
	}
	switch args[0] + " " + args[1] {
	case "recurring add":
		return a.recurringAdd(ctx, args[2:], out)
	case "recurring list":
		return a.recurringList(ctx, args[2:], out)
	case "recurring delete":
		return a.recurringDelete(ctx, args[2:], out)
	case "reminder add":
		return a.reminderAdd(ctx, args[2:], out)
	case "reminder list":
		return a.reminderList(ctx, args[2:], out)
	case "reminder cancel":
		return a.reminderCancel(ctx, args[2:], out)
	}
	return fmt.Errorf("unknown command %q\n\n%s", args[0]+" "+args[1], usage)
}

func (a *app) recurringAdd(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recurring add", flag.ContinueOnError)
	owner := fs.String("email", "", "owner email")
	var in service.CreateRecurringInput
	fs.StringVar(&in.Title, "title", "", "reminder title")
	fs.StringVar(&in.Description, "description", "", "optional description")
	fs.IntVar(&in.HijriMonth, "month", 0, "Hijri month (1-12)")
	fs.IntVar(&in.HijriDay, "day", 0, "Hijri day (1-30)")
	fs.IntVar(&in.OriginYear, "origin-year", 0, "Hijri year the event was first observed")
	fs.StringVar(&in.RemindTime, "time", "", "local send time HH:MM (default 09:00)")
	fs.StringVar(&in.Timezone, "tz", "", "IANA timezone (default UTC)")
	fs.IntVar(&in.DaysBefore, "days-before", 0, "send this many days ahead (0-30)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ev, err := a.recurring.Create(ctx, *owner, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created recurring event %s\n", ev.ID)
	return nil
}

func (a *app) recurringList(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recurring list", flag.ContinueOnError)
	owner := fs.String("email", "", "owner email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events, err := a.recurring.List(ctx, *owner)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tHIJRI\tTIME\tTZ\tDAYS BEFORE")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%02d-%02d\t%s\t%s\t%d\n",
			ev.ID, ev.Title, ev.HijriMonth, ev.HijriDay, ev.RemindTime, ev.Timezone, ev.DaysBefore)
	}
	return w.Flush()
}

func (a *app) recurringDelete(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recurring delete", flag.ContinueOnError)
	owner := fs.String("email", "", "owner email")
	id := fs.String("id", "", "recurring event id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.recurring.Delete(ctx, *owner, *id); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted recurring event %s\n", *id)
	return nil
}

func (a *app) reminderAdd(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reminder add", flag.ContinueOnError)
	owner := fs.String("email", "", "owner email")
	at := fs.String("at", "", "due time, RFC 3339")
	var in service.CreateReminderInput
	fs.StringVar(&in.Title, "title", "", "reminder title")
	fs.StringVar(&in.Description, "description", "", "optional description")
	fs.StringVar(&in.Timezone, "tz", "", "IANA timezone used for the displayed dates")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remindAt, err := time.Parse(time.RFC3339, *at)
	if err != nil {
		return fmt.Errorf("%w: -at: %v", service.ErrValidation, err)
	}
	in.RemindAt = remindAt

	r, err := a.reminders.Create(ctx, *owner, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created reminder %s for %s (%s)\n", r.ID, r.RemindAt.Format(time.RFC3339), r.HijriDate)
	return nil
}

func (a *app) reminderList(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reminder list", flag.ContinueOnError)
	owner := fs.String("email", "", "owner email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reminders, err := a.reminders.List(ctx, *owner)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tHIJRI\tDUE (UTC)\tSENT")
	for _, r := range reminders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", r.ID, r.Title, r.HijriDate, r.RemindAt.Format("2006-01-02 15:04"), r.Sent)
	}
	return w.Flush()
}

func (a *app) reminderCancel(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reminder cancel", flag.ContinueOnError)
	owner := fs.String("email", "", "owner email")
	id := fs.String("id", "", "reminder id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.reminders.Cancel(ctx, *owner, *id); err != nil {
		return err
	}
	fmt.Fprintf(out, "cancelled reminder %s\n", *id)
	return nil
}
