package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Println("passvault - Encrypted password vaults on the command line")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  passvault [--config <file>] [--dir <vaults dir>] <command> [arguments]")
	fmt.Println()
	fmt.Println("Vaults:")
	fmt.Println("  create      Create a new vault")
	fmt.Println("  list        List vaults")
	fmt.Println("  delete      Delete a vault")
	fmt.Println("  rename      Rename a vault")
	fmt.Println("  backup      Copy a vault file to a backup")
	fmt.Println("  restore     Register a vault from a backup")
	fmt.Println("  diff        Compare a vault with a backup")
	fmt.Println("  passwd      Change a vault's master password")
	fmt.Println("  compact     Reclaim disk space in a vault file")
	fmt.Println("  status      Show setup or vault status")
	fmt.Println("  keyring     Manage master passwords in the OS keyring")
	fmt.Println()
	fmt.Println("Entries:")
	fmt.Println("  add         Add an entry")
	fmt.Println("  get         Show entries")
	fmt.Println("  search      Search entries by name, username or notes")
	fmt.Println("  update      Change fields of an entry")
	fmt.Println("  rm          Remove an entry")
	fmt.Println("  stats       Show vault statistics")
	fmt.Println("  export      Export entries as JSON")
	fmt.Println()
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  passvault create personal             # Create a vault")
	fmt.Println("  passvault add personal github -user octo -password")
	fmt.Println("  passvault get personal -name git      # Show matching entries")
	fmt.Println("  passvault backup personal ~/personal.bak")
	fmt.Println()
	fmt.Println("The master password is read from PASSVAULT_PASSWORD, the OS keyring,")
	fmt.Println("or the terminal, in that order.")
	fmt.Println()
	fmt.Println("Use 'passvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "create":
		fmt.Println("passvault create [-description <text>] [-keyring] <name>")
		fmt.Println()
		fmt.Println("Creates a new encrypted vault and registers it under <name>.")
		fmt.Println("Prompts for the master password twice. The password is not")
		fmt.Println("stored anywhere unless -keyring is given.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -description   Free-text description shown by 'list'")
		fmt.Println("  -keyring       Store the master password in the OS keyring")
	case "list":
		fmt.Println("passvault list [-names]")
		fmt.Println()
		fmt.Println("Lists registered vaults with their cached entry counts.")
		fmt.Println("Does not require a password.")
	case "add":
		fmt.Println("passvault add <vault> [<name>] [-name <n>] [-user <u>] [-url <u>] [-notes <t>] [-password] [-api-key]")
		fmt.Println()
		fmt.Println("Adds an entry. Secrets are never read from flags: -password and")
		fmt.Println("-api-key prompt for them.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  passvault add personal github -user octo -url https://github.com -password")
	case "get":
		fmt.Println("passvault get <vault> [-id <n>] [-name <substring>] [-show]")
		fmt.Println()
		fmt.Println("Shows entries, all of them by default. Secrets are masked unless")
		fmt.Println("-show is given.")
	case "search":
		fmt.Println("passvault search <vault> <query> [-show]")
		fmt.Println()
		fmt.Println("Finds entries whose name, username or notes contain <query>,")
		fmt.Println("ignoring case.")
	case "update":
		fmt.Println("passvault update <vault> <id> [-name <n>] [-user <u>] [-url <u>] [-notes <t>] [-password] [-api-key]")
		fmt.Println()
		fmt.Println("Changes only the given fields. Pass an empty value to clear a field,")
		fmt.Println("e.g. -notes \"\".")
	case "rm":
		fmt.Println("passvault rm <vault> <id>")
		fmt.Println()
		fmt.Println("Removes an entry. Entry ids are never reused.")
	case "stats":
		fmt.Println("passvault stats <vault>")
		fmt.Println()
		fmt.Println("Shows entry count, creation and update times, and payload version.")
	case "export":
		fmt.Println("passvault export <vault> [-format json] [-o <file>]")
		fmt.Println()
		fmt.Println("Writes all entries, including plaintext secrets, as JSON.")
		fmt.Println("Files written with -o are readable by the owner only.")
	case "delete":
		fmt.Println("passvault delete [-force] <vault>")
		fmt.Println()
		fmt.Println("Deletes the vault file, its registry entry and its keyring entry.")
		fmt.Println("Asks to type the vault name unless -force is given.")
	case "rename":
		fmt.Println("passvault rename <old> <new>")
		fmt.Println()
		fmt.Println("Renames a vault and its file. Keyring entries follow the vault.")
	case "backup":
		fmt.Println("passvault backup <vault> <file>")
		fmt.Println()
		fmt.Println("Copies the encrypted vault file. Does not require a password.")
	case "restore":
		fmt.Println("passvault restore <file> <name>")
		fmt.Println()
		fmt.Println("Copies a backup into the vaults directory and registers it as <name>.")
		fmt.Println("An existing vault with that name is replaced.")
	case "diff":
		fmt.Println("passvault diff <vault> <backup file>")
		fmt.Println()
		fmt.Println("Shows how a vault's entries differ from a backup. Secrets appear")
		fmt.Println("as short digests, so changed passwords are visible but not shown.")
	case "passwd":
		fmt.Println("passvault passwd <vault>")
		fmt.Println()
		fmt.Println("Changes the master password. The vault is re-encrypted under a")
		fmt.Println("new salt and a stored keyring entry is updated.")
	case "compact":
		fmt.Println("passvault compact <vault>")
		fmt.Println()
		fmt.Println("Rewrites the vault file to reclaim unused space.")
		fmt.Println("This runs automatically after 'passwd'. Does not require a password.")
	case "status":
		fmt.Println("passvault status [<vault>]")
		fmt.Println()
		fmt.Println("Without a vault: shows the config, vaults directory and git warnings.")
		fmt.Println("With a vault: shows its file, state and keyring status.")
		fmt.Println("Does not require a password.")
	case "keyring":
		fmt.Println("passvault keyring <save|delete|status> <vault>")
		fmt.Println()
		fmt.Println("  save     Verify and store the master password in the OS keyring")
		fmt.Println("  delete   Remove the stored password")
		fmt.Println("  status   Show whether a password is stored")
	case "completion":
		fmt.Println("passvault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(passvault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(passvault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  passvault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
