package proctree

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Snapshot enumerates the OS process table. On Linux it scans /proc;
// elsewhere (or if /proc is unavailable) it falls back to ps.
func Snapshot() ([]Process, error) {
	if procs, err := procSnapshot(); err == nil {
		return procs, nil
	}
	return psSnapshot()
}

func procSnapshot() ([]Process, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	var procs []Process
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		stat, err := os.ReadFile("/proc/" + e.Name() + "/stat")
		if err != nil {
			// Process exited mid-scan.
			continue
		}
		ppid, err := parseStatPPid(string(stat))
		if err != nil {
			continue
		}
		procs = append(procs, Process{Pid: pid, PPid: ppid})
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no processes found in /proc")
	}
	return procs, nil
}

// parseStatPPid extracts field 4 (ppid) from /proc/pid/stat. The comm
// field is parenthesized and may itself contain spaces or parens, so
// parsing starts after the last ')'.
func parseStatPPid(stat string) (int, error) {
	end := strings.LastIndexByte(stat, ')')
	if end < 0 || end+2 > len(stat) {
		return 0, fmt.Errorf("malformed stat line")
	}
	fields := strings.Fields(stat[end+1:])
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed stat line")
	}
	return strconv.Atoi(fields[1])
}

func psSnapshot() ([]Process, error) {
	out, err := exec.Command("ps", "-axo", "pid=,ppid=").Output()
	if err != nil {
		return nil, fmt.Errorf("ps enumeration failed: %w", err)
	}

	var procs []Process
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		procs = append(procs, Process{Pid: pid, PPid: ppid})
	}
	return procs, nil
}
