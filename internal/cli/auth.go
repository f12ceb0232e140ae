package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/existflow/lockin/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage sign-in",
	Long: `Manage sign-in. With a remote server configured this signs in to
your account there; otherwise a local user is kept on this device.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the server",
	RunE:  runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who is signed in",
	RunE:  runWhoami,
}

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().String("email", "", "Sign in with a magic link sent to this email")
	loginCmd.Flags().String("token", "", "Verify magic link token")
	loginCmd.Flags().Bool("password", false, "Sign in with email and password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()
	ctx := cmd.Context()
	reader := bufio.NewReader(os.Stdin)

	email, _ := cmd.Flags().GetString("email")
	token, _ := cmd.Flags().GetString("token")
	usePassword, _ := cmd.Flags().GetBool("password")

	// Without a server the sign-in is a device-local user
	if a.Remote == nil {
		if email == "" {
			email = prompt(reader, "Email: ")
		}
		u, err := a.DB.CreateLocalUser(ctx, email)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Signed in on this device as %s\n", u.DisplayName)
		return nil
	}

	if token != "" {
		fmt.Printf("🔄 Verifying magic link token...\n")
		id, err := a.Remote.VerifyMagicLink(ctx, token)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Signed in as %s\n", id.Email)
		return nil
	}

	if usePassword {
		if email == "" {
			email = prompt(reader, "Email: ")
		}
		password := promptPassword("Password: ")

		fmt.Println("🔄 Signing in...")
		id, err := a.Remote.Login(ctx, email, password)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Signed in as %s\n", id.Email)
		return nil
	}

	if email == "" {
		email = prompt(reader, "Email: ")
	}
	fmt.Printf("🔄 Requesting magic link for %s...\n", email)
	devToken, err := a.Remote.RequestMagicLink(ctx, email)
	if err != nil {
		return err
	}
	fmt.Println("📬 Magic link requested! Check your email (or server logs in dev).")
	if devToken != "" {
		fmt.Printf("🔑 Development Token: %s\n", devToken)
	}

	inputToken := prompt(reader, "Enter Magic Link Token: ")
	if inputToken == "" {
		fmt.Println("❌ Token required.")
		return nil
	}

	fmt.Printf("🔄 Verifying magic link...\n")
	id, err := a.Remote.VerifyMagicLink(ctx, inputToken)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Signed in as %s\n", id.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if _, ok := a.Identity(cmd.Context()); !ok {
		fmt.Println("Not signed in.")
		return nil
	}

	fmt.Println("🔄 Signing out...")
	if a.Remote != nil && a.Remote.IsLoggedIn() {
		if err := a.Remote.Logout(cmd.Context()); err != nil {
			return err
		}
	}
	if err := a.DB.SignOutLocalUser(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("✅ Signed out.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if a.Remote == nil {
		return fmt.Errorf("no server configured: set remote_url and remote_key with 'lockin config set'")
	}

	reader := bufio.NewReader(os.Stdin)
	email := prompt(reader, "Email: ")
	password := promptPassword("Password: ")
	confirm := promptPassword("Confirm Password: ")

	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	fmt.Println("🔄 Creating account...")
	id, err := a.Remote.Register(cmd.Context(), email, password)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Account created, signed in as %s\n", id.Email)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	id, ok := a.Identity(cmd.Context())
	if !ok {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Println(formatIdentity(id, a.Remote != nil && a.Remote.IsLoggedIn()))
	return nil
}

func formatIdentity(id model.Identity, remote bool) string {
	where := "this device"
	if remote {
		where = "server"
	}
	return fmt.Sprintf("%s <%s> (%s)", id.DisplayName, id.Email, where)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fmt.Print(label)
	b, _ := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return string(b)
}
