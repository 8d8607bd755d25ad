// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/meta"
)

const bashCompletionScript = `# bash completion for tfcheck
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_tfcheck()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "bq ck cq pq sq svq vq completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
  local common="--attrs -a --color -c --filter -f --output -o --sort -s --titles -t --tldr"

    # Determine if the RootDir (first non-flag after subcommand) has already
    # been provided
    local have_rootdir=0
    local idx=2
    while [[ $idx -lt ${#COMP_WORDS[@]} ]]; do
        local w=${COMP_WORDS[$idx]}
        if [[ $w != -* ]]; then
            have_rootdir=1
            break
        fi
        ((idx++))
    done

    case "$cmd" in
    bq)
      local opts="$common --schema --live --workspace -w"
            ;;
        ck)
      local opts="$common --schema --host -h --offline"
            ;;
        cq)
      local opts="$common --schema"
            ;;
        pq)
      local opts="$common --schema --host -h --offline"
            ;;
        sq)
      local opts="$common --chop --diff --diff_filter --passphrase --short --sv --limit --workspace -w"
            ;;
        svq)
      local opts="$common --schema --limit -n --workspace -w"
            ;;
        vq)
      local opts="$common --schema"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

  # If current token starts with '-', or we've already consumed RootDir, offer flags
  if [[ "$cur" == -* || $have_rootdir -eq 1 ]]; then
    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
  fi

  # Otherwise, we're on the RootDir positional - complete directories
  COMPREPLY=( $(compgen -o dirnames -- "$cur") )
  return 0
}

complete -F _tfcheck tfcheck
`

const zshCompletionScript = `#compdef tfcheck

_tfcheck() {
  local -a cmds
  cmds=(
    'bq:backend query'
    'ck:contract check'
    'cq:configuration query'
    'pq:provider query'
    'sq:state query'
    'svq:state version query'
    'vq:variable query'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'tfcheck commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    bq)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--live[list workspaces in the designated store]' \
        '(-w --workspace)'{-w,--workspace}'[workspace]' \
        '::RootDir:_directories'
      ;;
    ck)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '(-h --host)'{-h,--host}'[provider registry host]' \
        '--offline[skip registry lookups]' \
        '*::RootDir:_directories'
      ;;
    cq)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '::RootDir:_directories'
      ;;
    pq)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '(-h --host)'{-h,--host}'[provider registry host]' \
        '--offline[skip registry lookups]' \
        '::RootDir:_directories'
      ;;
    sq)
      _arguments -C \
        $common \
        '--chop[chop common resource prefix from names]' \
        '--diff[find difference between state versions]' \
        '--diff_filter[filter for diff results]' \
        '--limit[limit state versions returned]' \
        '(-p --passphrase)'{-p,--passphrase}'[encrypted state passphrase]' \
        '--short[include full resource name paths]' \
        '--sv[state version to query]' \
        '(-w --workspace)'{-w,--workspace}'[workspace]' \
        '::RootDir:_directories'
      ;;
    svq)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '(-n --limit)'{-n,--limit}'[limit results]:limit' \
        '(-w --workspace)'{-w,--workspace}'[workspace]' \
        '::RootDir:_directories'
      ;;
    vq)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '::RootDir:_directories'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common '*:directory:_directories'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys
# is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _tfcheck tfcheck tfcheck
`

func completionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(os.Stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(os.Stdout, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			fmt.Fprint(os.Stdout, zshCompletionScript)
		case strings.HasSuffix(sh, "bash"):
			fmt.Fprint(os.Stdout, bashCompletionScript)
		default:
			fmt.Fprintln(os.Stderr, "usage: tfcheck completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

// NewCompletionCommand constructs the cli.Command for "completion".
func NewCompletionCommand(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "Generate shell completion script",
		UsageText: "tfcheck completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": m,
		},
		Action: completionCommandAction,
	}
}
