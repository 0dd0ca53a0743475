// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"net/netip"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/optionfactory/treebitmap"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// runWithTable loads the table and calls fn with it.
func runWithTable(opts *options, fn func(cmd *cobra.Command, tbl *treebitmap.Table[string], args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		tbl, err := loadTable(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return fn(cmd, tbl, args)
	}
}

func parseAddrs(args []string) ([]netip.Addr, error) {
	addrs := make([]netip.Addr, 0, len(args))
	for _, s := range args {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// parseCIDR accepts a prefix or a bare address, the prefix
// is not required to be masked.
func parseCIDR(s string) (netip.Prefix, error) {
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, errors.WithStack(err)
		}
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}

	pfx, err := netip.ParsePrefix(s)
	return pfx, errors.WithStack(err)
}

func newLookupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup IP...",
		Short: "Longest-prefix-match of the addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE: runWithTable(opts, func(cmd *cobra.Command, tbl *treebitmap.Table[string], args []string) error {
			addrs, err := parseAddrs(args)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			for _, addr := range addrs {
				if pfx, val, ok := tbl.LongestMatch(addr); ok {
					fmt.Fprintf(w, "%s\t%s\t%s\n", addr, pfx, val)
				} else {
					fmt.Fprintf(w, "%s\t-\n", addr)
				}
			}
			return w.Flush()
		}),
	}
}

func newMatchesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "matches IP...",
		Short: "All prefixes covering the addresses, shortest first",
		Args:  cobra.MinimumNArgs(1),
		RunE: runWithTable(opts, func(cmd *cobra.Command, tbl *treebitmap.Table[string], args []string) error {
			addrs, err := parseAddrs(args)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			for _, addr := range addrs {
				for pfx, val := range tbl.Matches(addr) {
					fmt.Fprintf(w, "%s\t%s\t%s\n", addr, pfx, val)
				}
			}
			return w.Flush()
		}),
	}
}

func newOverlapsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "overlaps CIDR...",
		Short: "Report whether any route overlaps the CIDRs",
		Args:  cobra.MinimumNArgs(1),
		RunE: runWithTable(opts, func(cmd *cobra.Command, tbl *treebitmap.Table[string], args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			for _, s := range args {
				pfx, err := parseCIDR(s)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%v\n", pfx.Masked(), tbl.AnyMatchedBy(pfx.Addr(), pfx.Bits()))
			}
			return w.Flush()
		}),
	}
}

// dumpEntry is the JSON form of a route.
type dumpEntry struct {
	Prefix string `json:"prefix"`
	Value  string `json:"value,omitempty"`
}

func newDumpCmd(opts *options) *cobra.Command {
	var asJSON, asTree bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print all routes in CIDR sort order",
		Args:  cobra.NoArgs,
		RunE: runWithTable(opts, func(cmd *cobra.Command, tbl *treebitmap.Table[string], _ []string) error {
			if asTree {
				return tbl.Fprint(cmd.OutOrStdout())
			}

			if asJSON {
				entries := make([]dumpEntry, 0, tbl.Len())
				for pfx, val := range tbl.All() {
					entries = append(entries, dumpEntry{Prefix: pfx.String(), Value: val})
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			for pfx, val := range tbl.All() {
				fmt.Fprintf(w, "%s\t%s\n", pfx, val)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the routes as JSON array")
	cmd.Flags().BoolVar(&asTree, "tree", false, "print the routes as CIDR coverage tree")
	cmd.MarkFlagsMutuallyExclusive("json", "tree")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the sizes of the tree bitmaps",
		Args:  cobra.NoArgs,
		RunE: runWithTable(opts, func(cmd *cobra.Command, tbl *treebitmap.Table[string], _ []string) error {
			s4, s6 := tbl.Stats()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "family\tprefixes\tnodes\tnode cap\tresult cap\t\n")
			for _, fs := range []struct {
				family string
				stats  treebitmap.Stats
			}{
				{"ipv4", s4},
				{"ipv6", s6},
			} {
				s := fs.stats
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t\n", fs.family, s.Prefixes, s.Nodes, s.NodeCap, s.ResultCap)
			}
			return w.Flush()
		}),
	}
}

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Load the routes and check the arena invariants",
		Args:  cobra.NoArgs,
		RunE: runWithTable(opts, func(cmd *cobra.Command, tbl *treebitmap.Table[string], _ []string) error {
			if err := tbl.Verify(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok, %d prefixes\n", tbl.Len())
			return nil
		}),
	}
}
