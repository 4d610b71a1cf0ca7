/*
Package redis implements the storage and locking ports on top of Redis.

Key layout (default prefix "statecraft:"):

	<prefix>history                     ZSET of every event (JSON member, score = append sequence)
	<prefix>history:seq                 INT append sequence
	<prefix>history:type:<type>         ZSET of events of one entity type
	<prefix>history:entity:<type>:<id>  ZSET of events of one entity
	<prefix>state:<type>:<id>           STRING holding the current state
	<prefix>lock:<key>                  STRING held by Locker

Type and id are escaped ("%" as %25, ":" as %3A) before they are placed in a key.
*/
package redis
