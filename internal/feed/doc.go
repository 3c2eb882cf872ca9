// Package feed holds the observable conversation sequence consumed by the
// UI layer.
//
// The feed owns the ordered entries and is the only place they are mutated.
// The adapter writes (Replace after a history fetch, Append for live
// entries); UI code reads Snapshot or subscribes:
//
//	snapshots, subID := fd.Subscribe(ctx)
//	for snapshot := range snapshots {
//		render(snapshot)
//	}
//
// Every mutation publishes a full snapshot to all subscribers. Publishing
// never blocks: subscribers that fall behind their channel buffer miss
// intermediate snapshots and catch up on the next one.
package feed
