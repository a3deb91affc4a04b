package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adminkit/session/internal/session"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Initialize the session and print its state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := newRuntime(cmd.Context(), cmd)
			st, err := rt.mgr.Initialize(cmd.Context())
			printState(st)
			if err != nil && st.Mode == session.ModeError {
				return err
			}
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt := newRuntime(ctx, cmd)

			// Settle the session first: a still-valid stored token makes
			// the login prompt unnecessary.
			st, _ := rt.mgr.Initialize(ctx)
			if st.Mode == session.ModeAuthenticated {
				fmt.Printf("Already logged in as %s\n", st.User.Username)
				return nil
			}

			reader := bufio.NewReader(os.Stdin)
			email, err := GetSimpleText(reader, "Enter email", os.Stdout)
			if err != nil {
				return err
			}
			password, err := GetPassword(os.Stdout)
			if err != nil {
				return err
			}
			defer wipe(password)

			st, lerr := rt.mgr.Login(ctx, email, string(password))
			if lerr != nil {
				// Non-fatal: the state keeps its mode, only Err is set.
				fmt.Printf("Login failed: %s\n", st.Err.Message)
				return lerr
			}
			fmt.Printf("Logged in as %s (%s tier)\n", st.User.Username, st.User.Tier)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := newRuntime(cmd.Context(), cmd)
			rt.mgr.Logout(cmd.Context())
			fmt.Println("Logged out")
			return nil
		},
	}
}

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Retry a failed session initialization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt := newRuntime(ctx, cmd)

			st, _ := rt.mgr.Initialize(ctx)
			if st.Mode == session.ModeError {
				st, _ = rt.mgr.RetryInitialization(ctx)
			}
			printState(st)
			if st.Mode == session.ModeError && st.Err != nil {
				return st.Err
			}
			return nil
		},
	}
}

func newGateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gate <feature>...",
		Short: "Check feature access for the current session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := newRuntime(ctx, cmd)
			st, _ := rt.mgr.Initialize(ctx)

			for _, feature := range args {
				d := rt.gate.CanAccess(st, feature)
				if d.Allowed {
					fmt.Printf("%-24s allowed\n", feature)
				} else {
					fmt.Printf("%-24s denied (%s)\n", feature, d.Reason)
				}
			}
			return nil
		},
	}
}

func printState(st session.State) {
	fmt.Printf("mode: %s\n", st.Mode)
	if st.User != nil {
		fmt.Printf("user: %s <%s> role=%s tier=%s\n", st.User.Username, st.User.Email, st.User.Role, st.User.Tier)
	}
	if st.Err != nil {
		fmt.Printf("error: %s (%s", st.Err.Message, st.Err.Kind)
		if st.Err.Recoverable {
			fmt.Printf(", retryable")
		}
		fmt.Println(")")
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
