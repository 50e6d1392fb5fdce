package config

// DefaultConfigTOML is a complete, commented sample config.toml.
const DefaultConfigTOML = `# perch configuration file

# reload_on_change = false      # reload when this file changes on disk
# lock_file = ""                # default: $XDG_RUNTIME_DIR/perch.lock

[log]
# level = "info"                # debug, info, warn, error
# format = "text"               # json, text
# syslog = false                # send logs to syslog instead of stderr

[metrics]
# listen = "127.0.0.1:9782"     # Prometheus endpoint; empty disables
# username = ""                 # HTTP Basic Auth username
# password = ""                 # bcrypt hash from "perch hash-password"

[bars.main]
# output = "stdout"             # stdout, stderr, or a file path
# output_maxbytes = "0"         # rotate a file output at this size
# output_backups = 0            # rotated files to keep
# on_sigusr1 = "toggle"         # noop, hide, show, toggle, reload
# on_sigusr2 = "reload"
# separator = " | "
# hidden = false                # start hidden
modules = ["load", "clock"]

[modules.clock]
exec = "date +%H:%M"
interval = 30                   # seconds; 0 runs once and on signal
# format = "{}"                 # {} is replaced with the first output line
# timeout = 10                  # seconds before the command is killed; 0 never
# strip_ansi = false            # drop terminal colour codes

[modules.load]
exec = "cut -d' ' -f1-3 /proc/loadavg"
interval = 5
format = "load {}"
signal = 1                      # "pkill -RTMIN+1 perch" refreshes now
# on_signal = ""                # command started on that signal
`
