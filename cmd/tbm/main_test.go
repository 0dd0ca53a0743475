// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/optionfactory/treebitmap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routeFile = `# test routes
0.0.0.0/0      default
10.0.0.0/8     corp
10.1.0.0/16    lab
2001:db8::/32  doc
`

// setup writes the route file and isolates the test from the
// config file and environment of the user.
func setup(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TBM_ROUTES", "")

	path := filepath.Join(home, "routes.txt")
	require.NoError(t, os.WriteFile(path, []byte(routeFile), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLookup(t *testing.T) {
	path := setup(t)

	out, err := run(t, "--routes", path, "lookup", "10.1.2.3", "2001:db8::1", "2002::1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"10.1.2.3", "10.1.0.0/16", "lab"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2001:db8::1", "2001:db8::/32", "doc"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2002::1", "-"}, strings.Fields(lines[2]))

	_, err = run(t, "--routes", path, "lookup", "not-an-ip")
	require.Error(t, err)
}

func TestMatches(t *testing.T) {
	path := setup(t)

	out, err := run(t, "--routes", path, "matches", "10.1.2.3")
	require.NoError(t, err)

	var pfxs []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		pfxs = append(pfxs, strings.Fields(line)[1])
	}
	assert.Equal(t, []string{"0.0.0.0/0", "10.0.0.0/8", "10.1.0.0/16"}, pfxs)
}

func TestOverlaps(t *testing.T) {
	path := setup(t)

	out, err := run(t, "--routes", path, "overlaps", "2001:db8:1::/48", "2001::/16", "3000::/4")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"2001:db8:1::/48", "true"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2001::/16", "true"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"3000::/4", "false"}, strings.Fields(lines[2]))
}

func TestDumpJSON(t *testing.T) {
	path := setup(t)

	out, err := run(t, "--routes", path, "dump", "--json")
	require.NoError(t, err)

	var entries []dumpEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Equal(t, []dumpEntry{
		{"0.0.0.0/0", "default"},
		{"10.0.0.0/8", "corp"},
		{"10.1.0.0/16", "lab"},
		{"2001:db8::/32", "doc"},
	}, entries)

	out, err = run(t, "--routes", path, "dump")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)

	out, err = run(t, "--routes", path, "dump", "--tree")
	require.NoError(t, err)
	assert.Equal(t, `▼
└─ 0.0.0.0/0 (default)
   └─ 10.0.0.0/8 (corp)
      └─ 10.1.0.0/16 (lab)
▼
└─ 2001:db8::/32 (doc)
`, out)

	_, err = run(t, "--routes", path, "dump", "--tree", "--json")
	require.Error(t, err)
}

func TestStatsAndVerify(t *testing.T) {
	path := setup(t)

	out, err := run(t, "--routes", path, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "ipv4")
	assert.Contains(t, out, "ipv6")

	out, err = run(t, "--routes", path, "verify")
	require.NoError(t, err)
	assert.Equal(t, "ok, 4 prefixes\n", out)
}

func TestNoRoutes(t *testing.T) {
	setup(t)

	_, err := run(t, "verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no route files")
}

func TestConfigFile(t *testing.T) {
	path := setup(t)

	cfg := filepath.Join(t.TempDir(), "tbm.yaml")
	content := "log-level: debug\nroutes:\n  - " + path + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o600))

	out, err := run(t, "--config", cfg, "verify")
	require.NoError(t, err)
	assert.Equal(t, "ok, 4 prefixes\n", out)
}

func TestEnvironment(t *testing.T) {
	path := setup(t)
	t.Setenv("TBM_ROUTES", path)

	out, err := run(t, "verify")
	require.NoError(t, err)
	assert.Equal(t, "ok, 4 prefixes\n", out)
}

func TestHandler(t *testing.T) {
	tbl := new(treebitmap.Table[string])
	tbl.InsertPrefix(netip.MustParsePrefix("10.0.0.0/8"), "corp")

	st := NewSyncTable(tbl)
	h := newHandler(st, prometheus.NewRegistry())

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}

	rec := get("/lookup?ip=10.1.2.3")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp lookupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, lookupResponse{IP: "10.1.2.3", Prefix: "10.0.0.0/8", Value: "corp", Found: true}, resp)

	rec = get("/lookup?ip=192.0.2.1")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = lookupResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Found)

	rec = get("/lookup?ip=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a replaced table is visible to the next lookup
	newTbl := new(treebitmap.Table[string])
	newTbl.InsertPrefix(netip.MustParsePrefix("192.0.2.0/24"), "test-net")
	st.Replace(newTbl)

	resp = lookupResponse{}
	require.NoError(t, json.Unmarshal(get("/lookup?ip=192.0.2.1").Body.Bytes(), &resp))
	assert.Equal(t, "test-net", resp.Value)

	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `treebitmap_lookups_total{result="hit"} 2`)
	assert.Contains(t, body, `treebitmap_lookups_total{result="miss"} 1`)
	assert.Contains(t, body, `treebitmap_prefixes{family="ipv4",table="routes"} 1`)
}

func TestReloadOnHangup(t *testing.T) {
	path := setup(t)
	opts := &options{routes: []string{path}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tbl, err := loadTable(ctx, opts)
	require.NoError(t, err)
	st := NewSyncTable(tbl)
	require.Equal(t, 4, st.Load().Len())

	hup, stop := notifyHangup()
	defer stop()

	done := make(chan struct{})
	go func() {
		reloadOnHangup(ctx, hup, st, opts)
		close(done)
	}()

	require.NoError(t, os.WriteFile(path, []byte("192.0.2.0/24 test-net\n"), 0o600))
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))

	require.Eventually(t, func() bool { return st.Load().Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	pfx, val, ok := st.Load().LongestMatch(netip.MustParseAddr("192.0.2.1"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParsePrefix("192.0.2.0/24"), pfx)
	assert.Equal(t, "test-net", val)

	_, _, ok = st.Load().LongestMatch(netip.MustParseAddr("10.1.2.3"))
	assert.False(t, ok)

	cancel()
	<-done
}

func TestSyncTableReplace(t *testing.T) {
	tables := make([]*treebitmap.Table[string], 2)
	for i, val := range []string{"first", "second"} {
		tables[i] = new(treebitmap.Table[string])
		tables[i].InsertPrefix(netip.MustParsePrefix("10.0.0.0/8"), val)
	}
	st := NewSyncTable(tables[0])

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1_000 {
				_, val, ok := st.LongestMatch(netip.MustParseAddr("10.1.2.3"))
				assert.True(t, ok)
				assert.Contains(t, []string{"first", "second"}, val)

				s4, _ := st.Stats()
				assert.Equal(t, 1, s4.Prefixes)
			}
		}()
	}

	for i := range 1_000 {
		st.Replace(tables[i%2])
	}
	wg.Wait()

	st.Replace(tables[1])
	_, val, _ := st.LongestMatch(netip.MustParseAddr("10.1.2.3"))
	assert.Equal(t, "second", val)
}
