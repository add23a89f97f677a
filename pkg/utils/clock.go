package utils

import (
	"time"

	"github.com/beevik/ntp"
)

// CheckClock compares the system clock against an NTP server and warns when
// the offset exceeds maxOffset. Photo filenames are derived from local time,
// and a Pi without an RTC can drift badly after a power cycle; the check is
// advisory only and never blocks startup.
func CheckClock(server string, maxOffset time.Duration) {
	resp, err := ntp.Query(server)
	if err != nil {
		logger.Warnf("ntp query %s failed: %s", server, err)
		return
	}
	if err := resp.Validate(); err != nil {
		logger.Warnf("ntp response from %s invalid: %s", server, err)
		return
	}

	offset := resp.ClockOffset
	if offset < 0 {
		offset = -offset
	}
	if offset > maxOffset {
		logger.Warnf("system clock is off by %s (ntp %s); photo timestamps will follow the local clock", resp.ClockOffset, server)
		return
	}
	logger.Infof("system clock ok, offset %s", resp.ClockOffset)
}
