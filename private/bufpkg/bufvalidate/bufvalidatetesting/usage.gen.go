// Generated. DO NOT EDIT.

package bufvalidatetesting

import _ "github.com/bufbuild/protoguard/private/usage"
