// Package shelvestrategy implements the SHELVE stage's placement policies:
// copying a job's rendered artifacts into the results library under a
// timeline, flat, or zettelkasten layout, with tag-based routing to
// subdirectories. Collision avoidance and verified copying are grounded on
// the teacher's internal/organizer package.
package shelvestrategy
