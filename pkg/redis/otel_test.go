package redis

import "testing"

func TestKeyFamily(t *testing.T) {
	cases := []struct {
		args []interface{}
		want string
	}{
		{[]interface{}{"get", "mk:session:abc"}, "session"},
		{[]interface{}{"zadd", "mk:ratelimit:submission:42"}, "ratelimit"},
		{[]interface{}{"get", "bare"}, "bare"},
		{[]interface{}{"ping"}, ""},
		{[]interface{}{"get", 42}, ""},
	}
	for _, tc := range cases {
		if got := keyFamily(tc.args); got != tc.want {
			t.Errorf("keyFamily(%v) = %q, want %q", tc.args, got, tc.want)
		}
	}
}
