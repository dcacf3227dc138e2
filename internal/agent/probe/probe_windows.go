//go:build windows

package probe

import (
	"context"
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"github.com/tracelight/agent/internal/agent/models"
)

var (
	user32   = syscall.NewLazySystemDLL("user32.dll")
	kernel32 = syscall.NewLazySystemDLL("kernel32.dll")

	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procGetLastInputInfo         = user32.NewProc("GetLastInputInfo")
	procGetTickCount             = kernel32.NewProc("GetTickCount")
	procK32GetModuleBaseNameW    = kernel32.NewProc("K32GetModuleBaseNameW")
)

const processQueryLimitedInformation = 0x1000

// System returns the Win32-backed probe.
func System() Probe {
	return win32{}
}

type win32 struct{}

func (win32) Foreground(_ context.Context) (models.ActivitySnapshot, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return models.ActivitySnapshot{}, ErrNoForegroundWindow
	}

	var pid uint32
	procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	handle, err := syscall.OpenProcess(processQueryLimitedInformation, false, pid)
	if err != nil {
		return models.ActivitySnapshot{}, fmt.Errorf("process query failed: %w", err)
	}
	defer syscall.CloseHandle(handle)

	nameBuf := make([]uint16, 260)
	n, _, _ := procK32GetModuleBaseNameW.Call(
		uintptr(handle), 0,
		uintptr(unsafe.Pointer(&nameBuf[0])), uintptr(len(nameBuf)),
	)

	titleBuf := make([]uint16, 512)
	t, _, _ := procGetWindowTextW.Call(
		hwnd,
		uintptr(unsafe.Pointer(&titleBuf[0])), uintptr(len(titleBuf)),
	)

	return models.ActivitySnapshot{
		ProcessName: syscall.UTF16ToString(nameBuf[:n]),
		WindowTitle: syscall.UTF16ToString(titleBuf[:t]),
		Timestamp:   time.Now().UTC(),
	}, nil
}

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

func (win32) IdleDuration(_ context.Context) (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ok, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ok == 0 {
		return 0, fmt.Errorf("idle query failed: %w", err)
	}
	now, _, _ := procGetTickCount.Call()
	// Tick counts wrap every ~49 days; uint32 subtraction handles the wrap.
	elapsed := uint32(now) - info.dwTime
	return time.Duration(elapsed) * time.Millisecond, nil
}
