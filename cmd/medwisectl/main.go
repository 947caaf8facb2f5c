// Command medwisectl signs in over gRPC and prints the caller's schedule as
// JSON. It doubles as a smoke test for a running server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"medwise-api/internal/grpcapi"
	"medwise-api/internal/model"
)

type options struct {
	addr     string
	email    string
	password string
	role     string
	query    string
	page     int
	pageSize int
	doctors  bool
	timeout  time.Duration
}

func parseFlags(args []string) (options, error) {
	o := options{password: os.Getenv("MEDWISE_PASSWORD")}
	fs := flag.NewFlagSet("medwisectl", flag.ContinueOnError)
	fs.StringVar(&o.addr, "a", "localhost:50051", "gRPC address of the server")
	fs.StringVar(&o.email, "email", "", "account email")
	fs.StringVar(&o.password, "password", o.password, "account password (default $MEDWISE_PASSWORD)")
	fs.StringVar(&o.role, "role", string(model.RoleDoctor), "Doctor or Admin")
	fs.StringVar(&o.query, "q", "", "search text")
	fs.IntVar(&o.page, "page", 0, "page number, 0 for everything")
	fs.IntVar(&o.pageSize, "size", 0, "page size")
	fs.BoolVar(&o.doctors, "doctors", false, "list doctors instead of appointments")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "overall deadline")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.email == "" || o.password == "" {
		return o, errors.New("email and password are required")
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	conn, err := grpc.NewClient(o.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := run(ctx, grpcapi.NewClient(conn), o, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *grpcapi.Client, o options, out io.Writer) error {
	session, err := c.Login(ctx, &grpcapi.LoginRequest{Email: o.email, Password: o.password, Role: model.Role(o.role)})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	ctx = grpcapi.WithToken(ctx, session.AccessToken)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if o.doctors {
		res, err := c.ListDoctors(ctx)
		if err != nil {
			return fmt.Errorf("list doctors: %w", err)
		}
		return enc.Encode(res.Doctors)
	}

	res, err := c.ListAppointments(ctx, &grpcapi.ListAppointmentsRequest{
		Query:    o.query,
		Page:     o.page,
		PageSize: o.pageSize,
	})
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}
	return enc.Encode(struct {
		User         model.PublicUser    `json:"user"`
		Total        int                 `json:"total"`
		Appointments []model.Appointment `json:"appointments"`
	}{session.User, res.Total, res.Appointments})
}
