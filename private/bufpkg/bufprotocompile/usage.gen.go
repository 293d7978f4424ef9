// Generated. DO NOT EDIT.

package bufprotocompile

import _ "github.com/bufbuild/protoguard/private/usage"
