package auth

import (
	"fmt"
	"strings"

	"igunfollow/pkg/config"
)

// ShowSetupGuide explains the ways to give the bot Instagram credentials
func ShowSetupGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 INSTAGRAM CREDENTIALS SETUP")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("The unfollow command logs in with your Instagram username and password.")
	fmt.Println("Pick one of the following:")
	fmt.Println()

	fmt.Println("📄 OPTION 1: .env file (what the Discord bot expects)")
	fmt.Println("   Create a .env file next to the binary containing:")
	fmt.Println()
	fmt.Printf("   %s=your_username\n", config.EnvInstagramUser)
	fmt.Printf("   %s=your_password\n", config.EnvInstagramPassword)
	fmt.Println()

	fmt.Println("🔐 OPTION 2: Saved credentials")
	fmt.Println("   Run 'igunfollow auth login' and enter your password when prompted.")
	fmt.Println("   It is kept in the system keychain, or in an encrypted file when no")
	fmt.Println("   keychain is available.")
	fmt.Println()

	fmt.Println("💡 TIPS:")
	fmt.Println("   • Environment variables take precedence over saved credentials")
	fmt.Println("   • Accounts with two-factor authentication cannot log in unattended")
	fmt.Println("   • If Instagram asks for a security checkpoint, confirm the login in the app and retry")
	fmt.Println()

	fmt.Println("⚠️  SECURITY WARNING:")
	fmt.Println("   • Your password gives FULL access to your Instagram account")
	fmt.Println("   • Never commit the .env file")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickGuide shows a condensed version for experienced users
func ShowQuickGuide() {
	fmt.Printf("\n🔑 Set %s and %s in .env, or run 'igunfollow auth login'\n",
		config.EnvInstagramUser, config.EnvInstagramPassword)
}
