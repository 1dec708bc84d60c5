package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vango-dev/fetchkit/internal/adminapi"
	"github.com/vango-dev/fetchkit/internal/errors"
	"github.com/vango-dev/fetchkit/pkg/httpsource"
	"github.com/vango-dev/fetchkit/pkg/resource"
)

func usersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage admin API users",
	}

	cmd.AddCommand(usersListCmd(c), usersGetCmd(c), usersCreateCmd(c))

	return cmd
}

// userPage is the structured output of users list.
type userPage struct {
	Users      []adminapi.User `json:"users" yaml:"users"`
	Page       int             `json:"page" yaml:"page"`
	Limit      int             `json:"limit" yaml:"limit"`
	Total      int             `json:"total" yaml:"total"`
	TotalPages int             `json:"totalPages" yaml:"totalPages"`
}

func usersListCmd(c *cli) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users one page at a time",
		Long: `List users through a paginated resource.

A page past the end is clamped to the last page.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit == 0 {
				limit = c.cfg.Pagination.Limit
			}
			if page < 1 {
				return errors.New("E120").WithSuggestion("--page starts at 1.")
			}
			if limit < 1 || limit > adminapi.MaxPageLimit {
				return errors.New("E120").WithSuggestion(fmt.Sprintf("--limit must be between 1 and %d.", adminapi.MaxPageLimit))
			}

			client, err := c.httpClient()
			if err != nil {
				return err
			}

			users := resource.NewPaginated(httpsource.List[adminapi.User](client, "/users"),
				c.resourceOptions("users",
					resource.WithImmediate(false),
					resource.WithInitialPage(page),
					resource.WithInitialLimit(limit),
				)...)
			defer users.Close()

			ctx := cmd.Context()
			if st := users.Execute(ctx, nil); st.Status == resource.Error {
				return requestError(st.Error)
			}
			// A page past the end is clamped and refetched; Wait covers the refetch.
			if err := users.Wait(ctx); err != nil {
				return err
			}

			s := users.PageState()
			if s.Status == resource.Error {
				return requestError(s.Error)
			}

			out := userPage{
				Users:      s.Data,
				Page:       s.Page,
				Limit:      s.Limit,
				Total:      s.Total,
				TotalPages: s.TotalPages,
			}
			return c.render(out, func(w io.Writer) error { return renderUserTable(w, out) })
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page to fetch")
	cmd.Flags().IntVar(&limit, "limit", 0, "users per page (default pagination.limit)")

	return cmd
}

func renderUserTable(w io.Writer, p userPage) error {
	if len(p.Users) == 0 {
		_, err := io.WriteString(w, "No users found\n")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Name", "Email", "Role", "ID", "Created")
	for _, u := range p.Users {
		_ = table.Append(u.Name, u.Email, u.Role, u.ID, u.CreatedAt.Format(dateFormat))
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nPage %d of %d (%d users)\n", p.Page, p.TotalPages, p.Total)
	return err
}

func usersGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.httpClient()
			if err != nil {
				return err
			}

			user := resource.New(httpsource.Get[adminapi.User](client, "/users/"+args[0]),
				c.resourceOptions("user", resource.WithImmediate(false))...)
			defer user.Close()

			st := user.Execute(cmd.Context(), nil)
			if st.Status == resource.Error {
				return requestError(st.Error)
			}
			return c.render(st.Data, func(w io.Writer) error { return renderUser(w, st.Data) })
		},
	}
}

func usersCreateCmd(c *cli) *cobra.Command {
	var req adminapi.CreateUserRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.httpClient()
			if err != nil {
				return err
			}

			// Field errors from the envelope are kept for the hint; the
			// resource itself only exposes the first message.
			var details []string
			post := httpsource.Post[adminapi.User](client, "/users", req)
			create := resource.New(func(ctx context.Context, p resource.Params) (resource.CallResult[adminapi.User], error) {
				res, err := post(ctx, p)
				details = res.Errors
				return res, err
			}, c.resourceOptions("create-user", resource.WithImmediate(false))...)
			defer create.Close()

			st := create.Execute(cmd.Context(), nil)
			if st.Status == resource.Error {
				ce := requestError(st.Error)
				if len(details) > 0 {
					ce.WithSuggestion(strings.Join(details, "; "))
				}
				return ce
			}
			return c.render(st.Data, func(w io.Writer) error { return renderUser(w, st.Data) })
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Role, "role", "", "admin, editor or viewer (default viewer)")

	return cmd
}

func renderUser(w io.Writer, u adminapi.User) error {
	return propertyTable(w,
		[2]string{"ID", u.ID},
		[2]string{"Name", u.Name},
		[2]string{"Email", u.Email},
		[2]string{"Role", u.Role},
		[2]string{"Created", u.CreatedAt.Format(dateFormat)},
	)
}
