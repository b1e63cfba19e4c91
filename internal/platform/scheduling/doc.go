// Package scheduling holds the time arithmetic behind scheduled bookings:
// weekly opening and break hours, slot tiling, and opening-window checks.
// Nothing in here touches storage.
package scheduling
