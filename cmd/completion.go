package cmd

import (
	"fmt"
	"io"
)

// Completion writes the completion script for shell
func Completion(w io.Writer, shell string) error {
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletion)
	case "zsh":
		fmt.Fprint(w, zshCompletion)
	case "fish":
		fmt.Fprint(w, fishCompletion)
	default:
		return fmt.Errorf("unknown shell: %s (supported: bash, zsh, fish)", shell)
	}
	return nil
}

const bashCompletion = `_passvault() {
    local cur prev words cword
    _init_completion || return

    local commands="create list add get search update rm stats export delete rename backup restore diff passwd compact status keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        create)
            COMPREPLY=($(compgen -W "-description -keyring" -- "$cur"))
            ;;
        list)
            COMPREPLY=($(compgen -W "-names" -- "$cur"))
            ;;
        add|update)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "$(passvault list -names 2>/dev/null)" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "-name -user -url -notes -password -api-key" -- "$cur"))
            fi
            ;;
        get|search|rm|stats|export|delete|rename|passwd|compact|status)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "$(passvault list -names 2>/dev/null)" -- "$cur"))
            elif [[ "$cmd" == "get" || "$cmd" == "search" ]]; then
                COMPREPLY=($(compgen -W "-id -name -show" -- "$cur"))
            elif [[ "$cmd" == "export" ]]; then
                COMPREPLY=($(compgen -W "-format -o" -- "$cur"))
            fi
            ;;
        backup|diff)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "$(passvault list -names 2>/dev/null)" -- "$cur"))
            else
                _filedir
            fi
            ;;
        restore)
            _filedir
            ;;
        keyring)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "$(passvault list -names 2>/dev/null)" -- "$cur"))
            fi
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _passvault passvault
`

const zshCompletion = `#compdef passvault

_passvault() {
    local -a commands
    commands=(
        'create:Create a new vault'
        'list:List vaults'
        'add:Add an entry to a vault'
        'get:Show entries'
        'search:Search entries'
        'update:Update an entry'
        'rm:Remove an entry'
        'stats:Show vault statistics'
        'export:Export entries'
        'delete:Delete a vault'
        'rename:Rename a vault'
        'backup:Back up a vault file'
        'restore:Restore a vault from a backup'
        'diff:Compare a vault with a backup'
        'passwd:Change the master password'
        'compact:Compact a vault file'
        'status:Show setup or vault status'
        'keyring:Manage password in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'passvault commands' commands
            ;;
        args)
            case "${words[2]}" in
                get|search|rm|stats|export|delete|rename|passwd|compact|status|add|update)
                    _arguments '1:vault:_passvault_vaults'
                    ;;
                backup|diff)
                    _arguments '1:vault:_passvault_vaults' '2:file:_files'
                    ;;
                restore)
                    _arguments '1:backup file:_files'
                    ;;
                keyring)
                    _arguments '1:subcommand:(save delete status)' '2:vault:_passvault_vaults'
                    ;;
                help)
                    _describe -t commands 'passvault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_passvault_vaults() {
    local -a vaults
    vaults=(${(f)"$(passvault list -names 2>/dev/null)"})
    _describe -t vaults 'vaults' vaults
}

_passvault "$@"
`

const fishCompletion = `# passvault fish completions

set -l commands create list add get search update rm stats export delete rename backup restore diff passwd compact status keyring help completion
set -l vault_commands add get search update rm stats export delete rename backup diff passwd compact status

complete -c passvault -f

# Commands
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a create -d 'Create a new vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a list -d 'List vaults'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a add -d 'Add an entry'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a get -d 'Show entries'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a search -d 'Search entries'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a update -d 'Update an entry'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove an entry'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a stats -d 'Vault statistics'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a export -d 'Export entries'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a delete -d 'Delete a vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a rename -d 'Rename a vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a backup -d 'Back up a vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a restore -d 'Restore a vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare with a backup'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change master password'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact a vault file'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show status'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# vault names
complete -c passvault -n "__fish_seen_subcommand_from $vault_commands" -a "(passvault list -names 2>/dev/null)"
complete -c passvault -n "__fish_seen_subcommand_from backup diff restore" -F

# keyring subcommands
complete -c passvault -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c passvault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c passvault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
