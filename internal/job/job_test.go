/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagridio/go-shell-cron/api/errors"
)

func Test_ParseDefinition(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		line   string
		exp    Definition
		expErr bool
	}{
		"simple": {
			line: "backup: 0 3 * * * tar czf /tmp/home.tgz /home",
			exp:  Definition{Name: "backup", Schedule: "0 3 * * *", Command: "tar czf /tmp/home.tgz /home"},
		},
		"no blank after colon": {
			line: "backup:0 3 * * * echo hi",
			exp:  Definition{Name: "backup", Schedule: "0 3 * * *", Command: "echo hi"},
		},
		"blanks around colon": {
			line: "rotate-logs \t:  */5 * * * *   logrotate  /etc/lr.conf  ",
			exp:  Definition{Name: "rotate-logs", Schedule: "*/5 * * * *", Command: "logrotate  /etc/lr.conf"},
		},
		"quoted command is kept verbatim": {
			line: `say: 1 2 3 4 5 echo "a  b" 'c'`,
			exp:  Definition{Name: "say", Schedule: "1 2 3 4 5", Command: `echo "a  b" 'c'`},
		},
		"colon in command": {
			line: "ping: * * * * * curl http://localhost:8080",
			exp:  Definition{Name: "ping", Schedule: "* * * * *", Command: "curl http://localhost:8080"},
		},
		"missing colon": {
			line:   "backup 0 3 * * * echo",
			expErr: true,
		},
		"missing command": {
			line:   "backup: 0 3 * * *",
			expErr: true,
		},
		"too few fields": {
			line:   "backup: 0 3 *",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			def, err := ParseDefinition(test.line)
			if test.expErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalidJobDefinition(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.exp, def)
		})
	}
}

func Test_DefinitionString(t *testing.T) {
	t.Parallel()

	def := Definition{Name: "a", Schedule: "* * * * *", Command: "true"}
	parsed, err := ParseDefinition(def.String())
	require.NoError(t, err)
	assert.Equal(t, def, parsed)
}
