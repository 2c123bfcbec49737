package lock

import "github.com/mirkobrombin/go-warden/v1/store"

// Release script results besides a positive remaining count.
const (
	releasedFully   = 0
	releaseNotFound = -1
	releaseNotOwner = -2
)

// KEYS[1] lock key, ARGV[1] owner, ARGV[2] ttl in ms.
// Returns the new count, or 0 when another owner holds the key.
var acquireScript = store.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  if redis.call("SET", KEYS[1], ARGV[1] .. ":1", "PX", ARGV[2], "NX") then
    return 1
  end
  return 0
end
local o, c = string.match(v, "^(.*):(%d+)$")
if not o then
  o = v
  c = 1
end
c = tonumber(c) or 1
if o ~= ARGV[1] then
  return 0
end
c = c + 1
redis.call("SET", KEYS[1], o .. ":" .. c, "PX", ARGV[2])
return c
`)

// KEYS[1] lock key, ARGV[1] owner, ARGV[2] ttl in ms for a partial release.
// A non-positive ttl keeps the remaining expiry of the record.
var releaseScript = store.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  return -1
end
local o, c = string.match(v, "^(.*):(%d+)$")
if not o then
  o = v
  c = 1
end
c = tonumber(c) or 1
if o ~= ARGV[1] then
  return -2
end
c = c - 1
if c > 0 then
  local ttl = tonumber(ARGV[2]) or 0
  if ttl <= 0 then
    ttl = redis.call("PTTL", KEYS[1])
  end
  if ttl > 0 then
    redis.call("SET", KEYS[1], o .. ":" .. c, "PX", ttl)
  else
    redis.call("SET", KEYS[1], o .. ":" .. c)
  end
  return c
end
redis.call("DEL", KEYS[1])
return 0
`)

// KEYS[1] lock key, ARGV[1] owner, ARGV[2] ttl in ms.
// Returns 1 when the expiry was extended, 0 when the owner no longer holds the key.
var renewScript = store.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
local o = string.match(v, "^(.*):%d+$")
if not o then
  o = v
end
if o ~= ARGV[1] then
  return 0
end
return redis.call("PEXPIRE", KEYS[1], ARGV[2])
`)
